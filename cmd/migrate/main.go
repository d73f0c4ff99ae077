package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/google/subcommands"

	"github.com/sheikh-saqib/personal-finance-ledger/internal/config"
	"github.com/sheikh-saqib/personal-finance-ledger/internal/logger"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Println("No .env file found, relying on system env vars")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	zl, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	r := &runner{cfg: cfg, logger: zl}

	commander := subcommands.NewCommander(flag.CommandLine, "migrate")
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&upCmd{runner: r}, "")
	commander.Register(&downCmd{runner: r}, "")
	commander.Register(&stepsCmd{runner: r}, "")
	commander.Register(&dropCmd{runner: r}, "")
	commander.Register(&versionCmd{runner: r}, "")

	flag.Parse()
	status := commander.Execute(context.Background())
	zl.Sync()
	os.Exit(int(status))
}
