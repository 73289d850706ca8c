package main

import (
	"os"

	"github.com/dshills/codecoach/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
