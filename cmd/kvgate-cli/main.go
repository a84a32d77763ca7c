package main

import (
	"fmt"
	"os"

	"github.com/kvgate/kvgate/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "kvgate-cli:", err)
		os.Exit(1)
	}
}
