package main

import (
	"os"

	"github.com/schemec/schemec/cmd/schemec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
