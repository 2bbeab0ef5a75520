package main

import (
	"bqtools/internal/appshell"
	"bqtools/internal/cli"
)

func main() {
	appshell.Main(cli.Execute)
}
