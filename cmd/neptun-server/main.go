package main

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/freezing/neptun/pkg/config"
	"github.com/freezing/neptun/pkg/logger"
	"github.com/freezing/neptun/pkg/neptun"
	"github.com/freezing/neptun/pkg/netio"
)

const version = "1.0.0"

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "neptun-server",
		Short: "Runs a Neptun engine that accepts connections and logs the reliable messages it receives",
		RunE:  run,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (defaults built in if omitted)")

	if err := root.Execute(); err != nil {
		logger.Fatal("server exited with error: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger.Banner("Neptun Server", version)

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}

	logger.Info("Listening on %s", cfg.ListenAddr)
	logger.Info("Tick rate: %.0f Hz", cfg.TickRate)
	logger.Info("Bandwidth offer: send=%d pkt/s/%dB read=%d pkt/s/%dB",
		cfg.Bandwidth.MaxSendPacketRate, cfg.Bandwidth.MaxSendPacketSize,
		cfg.Bandwidth.MaxReadPacketRate, cfg.Bandwidth.MaxReadPacketSize)

	socket, err := netio.Listen(cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer socket.Close()

	engine := neptun.New(socket, neptun.EngineConfig{
		Limit: neptun.BandwidthLimit{
			MaxReadPacketRate: cfg.Bandwidth.MaxReadPacketRate,
			MaxReadPacketSize: cfg.Bandwidth.MaxReadPacketSize,
			MaxSendPacketRate: cfg.Bandwidth.MaxSendPacketRate,
			MaxSendPacketSize: cfg.Bandwidth.MaxSendPacketSize,
		},
		NumRedundantPackets: cfg.NumRedundantPackets,
		ReliableBufferSize:  cfg.ReliableBufferSize,
		TickRate:            cfg.TickRate,
		PacketTimeout:       time.Duration(cfg.PacketTimeoutMillis) * time.Millisecond,
	}, logger.Raw(), nil)

	go serveMetrics(cfg.MetricsAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	tickInterval := time.Duration(float64(time.Second) / cfg.TickRate)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	logger.Success("Server ready")
	for {
		select {
		case now := <-ticker.C:
			err := engine.Tick(now, onReliable, onUnreliable)
			if err != nil {
				logger.Error("tick failed: %v", err)
			}
		case sig := <-sigChan:
			logger.Warn("received signal: %v", sig)
			logger.Info("shutting down")
			return nil
		}
	}
}

func onReliable(addr *net.UDPAddr, message []byte) {
	logger.Info("reliable message from %s: %d bytes", addr, len(message))
}

func onUnreliable(addr *net.UDPAddr, message []byte) {
	logger.Debug("unreliable message from %s: %d bytes", addr, len(message))
}

func serveMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped: %v", err)
	}
}
