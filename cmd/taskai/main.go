package main

import (
	"os"

	"github.com/worktoolai/taskai/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
