// Command echo-server runs a minimal nautilus-sockets server that echoes
// every "echo" event it receives back to the sender reliably.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/philip727/nautilus-sockets/config"
	"github.com/philip727/nautilus-sockets/delivery"
	"github.com/philip727/nautilus-sockets/logging"
	"github.com/philip727/nautilus-sockets/metrics"
	"github.com/philip727/nautilus-sockets/registry"
	"github.com/philip727/nautilus-sockets/socket"
)

const version = "1.0.0"

func main() {
	var configPath, metricsAddr string

	root := &cobra.Command{
		Use:   "echo-server",
		Short: "Run a nautilus-sockets echo server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, metricsAddr)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")

	if err := root.Execute(); err != nil {
		logging.Fatal("%v", err)
	}
}

func run(configPath, metricsAddr string) error {
	logging.Banner("nautilus-sockets echo server", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.Info("binding %s:%d", cfg.Host, cfg.Port)
	logging.Info("max connections: %d", cfg.MaxConnections)
	logging.Info("idle timeout: %s", cfg.IdleTimeout)
	logging.Info("ack retry interval: %s", cfg.AckRetryInterval)

	var rec *metrics.Recorder
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		rec = metrics.NewRecorder(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logging.Warn("metrics server stopped: %v", err)
			}
		}()
		logging.Info("serving metrics on %s/metrics", metricsAddr)
	}

	srv, err := socket.NewServer(
		cfg.Host+":"+strconv.Itoa(cfg.Port),
		socket.ServerConfig{MaxConnections: cfg.MaxConnections, IdleTimeout: cfg.IdleTimeout},
		socket.WithRetryInterval(cfg.AckRetryInterval),
		socket.WithMetrics(rec),
	)
	if err != nil {
		return err
	}

	srv.On("echo", func(s *socket.Server, source string, payload []byte) {
		id, ok := s.GetClientID(source)
		if !ok {
			return
		}
		logging.Info("echoing %d bytes back to %s", len(payload), source)
		if err := s.Send("echo", payload, delivery.Reliable, id); err != nil {
			logging.Warn("echo send failed: %v", err)
		}
	})

	srv.OnPoll(func() {
		for _, ev := range srv.ServerEvents() {
			switch ev.Kind {
			case registry.OnClientConnected:
				logging.Success("client %d connected", ev.ID)
			case registry.OnClientTimeout:
				logging.Warn("client %d timed out", ev.ID)
			case registry.OnClientDisconnected:
				logging.Info("client %d disconnected", ev.ID)
			}
		}
	})

	logging.Success("listening on %s", srv.ServerAddress())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case sig := <-sigCh:
			logging.Warn("received signal: %v", sig)
			logging.Success("server stopped")
			return nil
		default:
			srv.Poll()
			srv.RunEvents()
			for _, f := range srv.Faults() {
				logging.Warn("socket fault (%s): %s", f.Kind, f.Detail)
			}
			time.Sleep(time.Millisecond)
		}
	}
}
