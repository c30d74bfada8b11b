package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/netwatch/backend/internal/config"
	"github.com/netwatch/backend/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configPath string
	port       int
	mock       bool
	signal     string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("netwatch", flag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to config file")
	fs.IntVarP(&opts.port, "port", "p", 0, "Override server port")
	fs.BoolVar(&opts.mock, "mock", false, "Replay the scripted mock connectivity states")
	fs.StringVar(&opts.signal, "signal", "", "Override change signal source (auto, netlink, poll, mock)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.signal != "" {
		cfg.Monitor.Signal = opts.signal
	}
	if opts.mock {
		cfg.Monitor.Signal = config.SignalMock
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "netwatch: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	d, err := newDaemon(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	if err := d.start(); err != nil {
		return err
	}
	defer d.stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ws.ListenAndServe(gctx, cfg.Server.Host, cfg.Server.Port, d.handler())
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				next, err := loadConfig(opts)
				if err != nil {
					log.Printf("Config reload failed, keeping current config: %v", err)
					continue
				}
				if err := d.reload(next); err != nil {
					log.Printf("Applying reloaded config: %v", err)
				}
			}
		}
	})

	err = g.Wait()
	log.Println("Shutting down...")
	return err
}
