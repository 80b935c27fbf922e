package main

import (
	"os"

	"clipship/cmd"
	"clipship/internal/app"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(app.ExitCode(err))
	}
}
