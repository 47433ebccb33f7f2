package main

import (
	"os"

	"github.com/helpfultests/helpfultests/internal/cli"
)

func main() {
	code, _ := cli.Run(os.Args, nil)
	os.Exit(code)
}
