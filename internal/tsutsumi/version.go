package tsutsumi

import (
	"fmt"
	"runtime"
)

// PrintVersion reports the tool version and build metadata.
func PrintVersion() {
	fmt.Printf("tsutsumi %s (%s, built %s)\n", version, runtime.GOARCH, buildDate)
}
