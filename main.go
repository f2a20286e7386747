package main

import (
	"os"

	"go-reviewlens/cli"
)

func main() {
	os.Exit(cli.Run())
}
