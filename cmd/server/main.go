package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rileyboughner/bboard/internal/chat"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "chat listen address (overrides config)")
	opsAddr := flag.String("ops-addr", "", "ops/metrics listen address (overrides config)")
	wsAddr := flag.String("ws-addr", "", "websocket listen address (overrides config)")
	flag.Parse()

	cfg, err := chat.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *opsAddr != "" {
		cfg.OpsAddr = *opsAddr
	}
	if *wsAddr != "" {
		cfg.WebSocketAddr = *wsAddr
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	srv := chat.NewServer(cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	srv.Stop()
}
