// tallyctl is a small CLI for the counter service.
//
// Usage:
//
//	tallyctl [-server URL] value      print the current counter value
//	tallyctl [-server URL] increment  increment the counter and print the new value
//	tallyctl [-server URL] watch      follow counter updates until interrupted
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gyu-don/counter-app/pkg/client"
)

func main() {
	var (
		serverURL = flag.String("server", envOr("COUNTER_SERVER", "http://localhost:8080"), "Counter service base URL (or set COUNTER_SERVER env)")
		verbose   = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	if flag.NArg() != 1 {
		log.Fatal("Expected exactly one command: value, increment, or watch")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(*serverURL)

	switch cmd := flag.Arg(0); cmd {
	case "value":
		value, err := c.Value(ctx)
		if err != nil {
			log.Fatalf("Failed to read counter: %v", err)
		}
		fmt.Println(value)

	case "increment":
		value, err := c.Increment(ctx)
		if err != nil {
			log.Fatalf("Failed to increment counter: %v", err)
		}
		fmt.Println(value)

	case "watch":
		updates, err := c.Watch(ctx)
		if err != nil {
			log.Fatalf("Failed to watch counter: %v", err)
		}
		for value := range updates {
			fmt.Println(value)
		}

	default:
		log.Fatalf("Unknown command %q: expected value, increment, or watch", cmd)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
