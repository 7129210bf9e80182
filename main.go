// main.go
package main

import (
	"fmt"
	"os"

	"github.com/rahulwagh/policymig/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cmd.ExitCode(err))
	}
}
