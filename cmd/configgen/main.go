package main

import (
	"flag"
	"log"

	"github.com/danmuck/entmux/internal/config"
)

func main() {
	kind := flag.String("kind", "node", "config kind: node|client")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	path := *output
	if *validate {
		path = *input
	}
	if path == "" {
		switch *kind {
		case "node":
			path = "cmd/entmuxd/config.toml"
		case "client":
			path = "cmd/entmuxctl/config.toml"
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
	}

	if *validate {
		switch *kind {
		case "node":
			if _, err := config.LoadNodeConfig(path); err != nil {
				log.Fatal(err)
			}
		case "client":
			if _, err := config.LoadClientConfig(path); err != nil {
				log.Fatal(err)
			}
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	if err := config.WriteTemplate(path, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, path)
}
