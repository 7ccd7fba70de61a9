package main

import (
	"fmt"

	"github.com/script-hub/script-hub/internal/version"
)

// printVersion writes the injected version + commit info.
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
}
