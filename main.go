package main

import (
	"os"

	"github.com/marklab/marksman/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
