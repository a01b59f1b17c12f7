// Package main is a command-line client for the CodeXi API. It keeps the
// session in the user's config directory between invocations.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
