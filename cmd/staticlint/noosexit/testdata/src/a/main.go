package main

import (
	"log"
	"os"
)

func main() {
	defer cleanup()
	if len(os.Args) > 2 {
		log.Fatalf("too many arguments: %d", len(os.Args)) // want "avoid using log.Fatalf in main.main"
	}
	log.Println("still fine")
	os.Exit(1) // want "avoid using os.Exit in main.main"
}

func cleanup() {
	os.Exit(0)
}
