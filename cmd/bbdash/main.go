package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/izzyreal/bbdash/internal/config"
	"github.com/izzyreal/bbdash/internal/reporter"
	"github.com/izzyreal/bbdash/internal/server"
	"github.com/izzyreal/bbdash/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "server":
		err = server.Run(ctx)
	case "report":
		err = reporter.Run(ctx, os.Args[2:])
	case "pending":
		err = reporter.RunPending(ctx, os.Args[2:])
	case "check-config":
		err = checkConfig(os.Args[2:])
	case "version":
		fmt.Println(version.Current())
		return
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "bbdash: %v\n", err)
		os.Exit(1)
	}
}

func checkConfig(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("check-config requires a config file")
	}
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	queues := 0
	for _, m := range cfg.Buildmasters {
		queues += len(m.Queues)
	}
	fmt.Printf("%s: ok (%d buildmasters, %d queues)\n", strings.TrimSpace(args[0]), len(cfg.Buildmasters), queues)
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `bbdash - buildbot queue status dashboard

Usage:
  bbdash <command>

Commands:
  server                              Run the dashboard server
  report [-server URL] FILE...        Push iteration reports from JSON files
  pending [-server URL] QUEUE COUNT   Set a queue's pending revision count
  check-config FILE                   Validate a buildmaster config file
  version                             Print the version
  help                                Show this help
`)
}
