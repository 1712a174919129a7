package main

import (
	"os"

	"github.com/OFFIS-RIT/paperkg/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
