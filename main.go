package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"raffle/cmd"
	"raffle/config"
	"raffle/database"

	log "github.com/sirupsen/logrus"
)

const usage = "usage: raffle [serve|draw|migrate up|down [steps]|status]"

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	// Migrations only need DATABASE_URL, not the full service config
	if command == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error: ", err)
		}
		return
	}

	cmd.ConfigureLogging(config.Get())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	var err error
	switch command {
	case "serve":
		err = cmd.Run(ctx)
	case "draw":
		err = cmd.RunDraw(ctx)
	default:
		err = fmt.Errorf("unknown command %q\n%s", command, usage)
	}
	if err != nil {
		log.Fatal("Application error: ", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("%s", usage)
	}

	switch os.Args[2] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", os.Args[2])
	}
}
