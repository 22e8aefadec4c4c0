package main

import (
	"os"

	"github.com/bnema/spaceport/internal/adapters/in/cli"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	os.Exit(cli.Execute())
}
