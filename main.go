package main

import (
	"os"

	"github.com/broar/playbin-cli/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
