package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/via-network/bridge-relayer/pkg/app/relayer"
	"github.com/via-network/bridge-relayer/pkg/config"
)

var configPath = flag.String("config", "config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := relayer.NewServer(cfg).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "relayer exited with error: %v\n", err)
		os.Exit(1)
	}
}
