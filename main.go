// main is the entry point for the svncoord CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/svncoord/cmd"
	"github.com/huangsam/svncoord/internal/iocache"
)

func main() {
	defer iocache.CloseJournal()

	err := cmd.Execute()
	if shutdownErr := cmd.Shutdown(); shutdownErr != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warn shutdown: %v\n", shutdownErr)
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		iocache.CloseJournal()
		os.Exit(1)
	}
}
