package main

import (
	"os"

	"github.com/hollenbach/scalesim/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
