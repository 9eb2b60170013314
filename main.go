// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"

	"spectro/cmd"
	"spectro/internal/log"
	"spectro/pkg/build"
)

func main() {
	// Development builds carry no linker flags; that is not fatal.
	if err := build.Initialize(); err != nil {
		log.Debugf("build info incomplete: %v", err)
	}

	if err := cmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", build.Get().Name, err)
		os.Exit(1)
	}
}
