package main

import (
	"os"

	"github.com/wonny/scout/backend/cmd/scout/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
