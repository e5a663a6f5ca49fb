// relq renders query documents as SQL statements with two-valued null
// semantics and runs conformance scenarios against SQLite.
package main

import (
	"log/slog"
	"os"

	"github.com/roach88/relq/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(cli.GetExitCode(err))
	}
}
