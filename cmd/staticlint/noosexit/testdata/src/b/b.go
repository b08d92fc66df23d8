package b

import (
	exit "os"
)

func main() {
	exit.Exit(2)
}
