package main

import (
	"fmt"
	"os"

	"github.com/bigbell/bellhop/common/version"
	"github.com/bigbell/bellhop/internal/bellhop/app"
	"github.com/bigbell/bellhop/internal/bellhop/config"
)

func main() {
	fmt.Printf("BigBell WhatsApp Bot\n")
	fmt.Printf("Version: %s\n", version.Info())
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	bot, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer bot.Stop()

	if err := bot.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running server: %v\n", err)
		os.Exit(1)
	}
}
