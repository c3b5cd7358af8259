package main

import (
	"os"

	"github.com/wicaksana/cvner/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
