package main

import osalias "os"

func main() {
	osalias.Exit(3) // want "avoid using os.Exit in main.main"
}
