package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"valauth/internal/auth"
	"valauth/internal/autherr"
	"valauth/internal/config"
	"valauth/internal/logging"
	"valauth/internal/server"
	"valauth/internal/transport"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		return 1
	}

	logger := logging.New(logging.Config{
		Service: "valauth",
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	}, os.Stdout)
	slog.SetDefault(logger)

	senders, err := loadSenders(cfg, logger)
	if err != nil {
		logger.Error("build transport", "kind", autherr.KindOf(err).String(), "error", err)
		return 1
	}

	authenticator := auth.NewPool(senders, auth.WithEndpoints(auth.Endpoints{
		Authorization: cfg.AuthorizationURL,
		Entitlements:  cfg.EntitlementsURL,
		UserInfo:      cfg.UserInfoURL,
	}))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := server.New(authenticator, logger, registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
		logger.Error("server exited", "error", err)
		return 1
	}
	return 0
}

// loadSenders builds one transport per configured proxy, or a single one
// when no proxy file is set.
func loadSenders(cfg config.Config, logger *slog.Logger) ([]auth.Sender, error) {
	proxies := []string{cfg.Proxy}
	if cfg.ProxyFile != "" {
		var err error
		proxies, err = transport.LoadProxyFile(cfg.ProxyFile)
		if err != nil {
			return nil, err
		}
	}

	senders := make([]auth.Sender, 0, len(proxies))
	for _, proxy := range proxies {
		client, err := newTransport(cfg, proxy)
		if err != nil {
			return nil, err
		}
		logger.Info("transport ready",
			"proxy", client.Proxy(),
			"suites", len(client.Suites()),
			"timeout", cfg.RequestTimeout.String(),
		)
		senders = append(senders, client)
	}
	return senders, nil
}

func newTransport(cfg config.Config, proxy string) (*transport.Client, error) {
	opts := []transport.Option{
		transport.WithTimeout(cfg.RequestTimeout),
		transport.WithProxy(proxy),
	}
	if len(cfg.CipherSuites) > 0 {
		opts = append(opts, transport.WithCipherSuites(cfg.CipherSuites...))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, transport.WithUserAgent(cfg.UserAgent))
	}
	return transport.New(opts...)
}
