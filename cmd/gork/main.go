package main

import (
	"os"

	"github.com/soyeahso/gork/internal/cli"
	"github.com/tillberg/autorestart"
)

func main() {
	// Restart when the binary is rebuilt in place.
	if os.Getenv("GORK_AUTORESTART") != "" {
		go autorestart.RestartOnChange()
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
