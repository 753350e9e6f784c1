// Command tpncalc runs the NeoNest calculators at the bedside, keeping
// defaults and history in a local SQLite file.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintln(os.Stderr, "tpncalc:", err)
		}
		os.Exit(1)
	}
}
