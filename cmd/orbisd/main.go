package main

import (
	"fmt"
	"os"

	"github.com/vanin2004/orbis-file-storage/cmd/orbisd/commands"
)

const usage = `orbisd - content-addressed file storage service

Usage:
  orbisd <command>

Commands:
  serve    Start the HTTP API and serve requests
  migrate  Apply pending database migrations and exit
  init     Write a YAML reference of the environment variables orbisd reads
  version  Show version information

Configuration is read entirely from environment variables: APP_HOST,
APP_PORT, DATABASE_URL, FILE_STORAGE_PATH, PENDING_FILE_PREFIX,
LOCK_TIMEOUT, DB_RETRIES, DB_RETRY_DELAY, DEBUG.
`

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := commands.Serve(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "migrate":
		if err := commands.Migrate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "init":
		path := "orbis.reference.yaml"
		if len(os.Args) > 2 {
			path = os.Args[2]
		}
		if err := commands.Init(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("orbisd %s (commit: %s)\n", version, commit)
	case "help", "--help", "-h":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}
