// File: cmd/gazer/main.go
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gazerhq/gazer/cmd"
	"github.com/gazerhq/gazer/internal/observability"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			observability.Sync()
			os.Exit(2)
		}
	}()

	cmd.Execute()
}
