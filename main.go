package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/circulation/internal/config"
	"github.com/mrlokans/circulation/internal/database"
	"github.com/mrlokans/circulation/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the daemon
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	switch os.Args[1] {
	case "profiles":
		cfg := config.NewConfig()
		profiles, err := database.OpenProfilesDatabase(cfg.Library.RootDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, p := range profiles.Profiles() {
			accounts, err := profiles.Accounts(p.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s\t%s\t%d account(s)\n", p.ID, p.DisplayName, len(accounts.Accounts()))
		}

	case "version":
		fmt.Printf("circulation %s (%s)\n", Version, Commit)

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Start the daemon (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  profiles  List profiles in the configured library root\n")
	fmt.Fprintf(os.Stderr, "  version   Print version information\n")
}
