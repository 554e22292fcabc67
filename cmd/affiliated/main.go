package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tonaffiliate/config"
	"tonaffiliate/core/events"
	"tonaffiliate/core/ledger"
	"tonaffiliate/integrations/relay"
	"tonaffiliate/observability/logging"
	"tonaffiliate/rpc"
	"tonaffiliate/storage"
)

const serviceName = "affiliated"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("node stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func setupLogger(cfg config.Log) *slog.Logger {
	level := logging.ParseLevel(cfg.Level)
	env := strings.TrimSpace(os.Getenv("AFFILIATE_ENV"))
	if env == "" {
		env = cfg.Env
	}
	if cfg.Format == config.LogFormatConsole {
		return logging.SetupConsole(serviceName, env, level)
	}
	return logging.Setup(serviceName, env, level)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	genesis, err := cfg.Genesis()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	emitters := events.Multi{logEmitter{logger: logger}}
	if addr := strings.TrimSpace(cfg.Relay.Addr); addr != "" {
		client, err := relay.Connect(addr, cfg.Relay.Password, cfg.Relay.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		r, err := relay.New(relay.NewRedisPublisher(client), cfg.Relay.Channel, relay.WithLogger(logger))
		if err != nil {
			return err
		}
		defer r.Close()
		emitters = append(emitters, r)
		logger.Info("event relay enabled", logging.URLField("redis", addr),
			slog.String("password", logging.MaskValue(cfg.Relay.Password)), slog.String("channel", cfg.Relay.Channel))
	}

	l := ledger.New()
	l.SetLogger(logger)
	l.SetEmitter(emitters)
	l.SetDatabase(db)
	if err := l.Load(); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	c, err := resolveChain(genesis)
	if err != nil {
		return err
	}
	if l.Exists(c.marketplace) {
		logger.Info("ledger restored", slog.String("marketplace", c.marketplace.ToRaw()))
	} else {
		if c, err = bootstrap(ctx, l, genesis, logger); err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
	}

	server := rpc.NewServer(l, c.marketplace, logger)
	err = server.Serve(ctx, cfg.RPCAddress)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// logEmitter writes committed events to the node log.
type logEmitter struct {
	logger *slog.Logger
}

func (e logEmitter) Emit(evt events.Event) {
	attrs := []any{slog.String("type", evt.EventType())}
	if env, ok := evt.(events.Envelope); ok && env.Evt != nil {
		if env.Evt.Contract != "" {
			attrs = append(attrs, slog.String("contract", env.Evt.Contract))
		}
		for k, v := range env.Evt.Attributes {
			attrs = append(attrs, slog.String(k, v))
		}
	}
	e.logger.Debug("event", attrs...)
}
