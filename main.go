package main

import (
	"os"

	"github.com/skulwise/skulwise/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
