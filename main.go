package main

import (
	"os"

	"github.com/cntsep/go-gsioc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
