package main

import (
	"fmt"
	"os"

	"github.com/nikhilbhutani/pdfprecheck/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.LocalExtractor).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
