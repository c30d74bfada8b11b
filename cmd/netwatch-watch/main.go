package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/netwatch/backend/internal/client"
	"github.com/netwatch/backend/internal/ws"
	flag "github.com/spf13/pflag"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) || errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "netwatch-watch: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("netwatch-watch", flag.ContinueOnError)
	url := fs.StringP("url", "u", "ws://127.0.0.1:8090/ws", "Daemon status stream URL")
	token := fs.StringP("token", "t", "", "Auth token")
	maxDelay := fs.Duration("max-backoff", 30*time.Second, "Longest wait between reconnect attempts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c := client.NewWSClient(*url, *token)
	c.SetBackoff(0, *maxDelay)
	return c.Run(ctx, printer(out))
}

// printer writes one line per stream event.
func printer(out io.Writer) client.Handlers {
	return client.Handlers{
		Connected: func() {
			fmt.Fprintln(out, "connected")
		},
		Disconnected: func(err error) {
			fmt.Fprintf(out, "disconnected: %v\n", err)
		},
		Snapshot: func(p ws.SnapshotPayload) {
			if p.Status == nil {
				fmt.Fprintf(out, "%s  waiting for first signal (provider %s)\n", time.Now().Format(time.TimeOnly), p.Health.Status)
				return
			}
			fmt.Fprintf(out, "%s  %s  %s\n", p.At.Format(time.TimeOnly), *p.Status, p.Snapshot)
		},
		Status: func(p ws.StatusPayload) {
			fmt.Fprintf(out, "%s  %s\n", p.At.Format(time.TimeOnly), p.Status)
		},
	}
}
