// Package main runs the offline admin signing tool for the wrap
// registry.
package main

import (
	"flag"
	"fmt"
	"os"

	"wrapregistry/internal/tools/wrapsigner"
)

func main() {
	cfg, err := wrapsigner.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse flags: %v\n", err)
		os.Exit(2)
	}
	if err := wrapsigner.Run(cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "wrap-signer: %v\n", err)
		os.Exit(1)
	}
}
