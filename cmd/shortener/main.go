// Command shortener runs the TinyApp URL shortener.
package main

import (
	"fmt"
	"os"

	"github.com/patric-chuzhbe/tinyapp/internal/app"
)

// Build information, set with -ldflags "-X main.buildVersion=...".
var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func buildInfo() string {
	return fmt.Sprintf(
		"Build version: %s\nBuild date: %s\nBuild commit: %s\n",
		buildVersion,
		buildDate,
		buildCommit,
	)
}

func main() {
	fmt.Print(buildInfo())

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		panic(err)
	}
}

func run() error {
	theApp, err := app.New()
	if err != nil {
		return err
	}
	defer theApp.Close()

	return theApp.Run()
}
