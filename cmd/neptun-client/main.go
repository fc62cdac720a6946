package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/freezing/neptun/pkg/config"
	"github.com/freezing/neptun/pkg/logger"
	"github.com/freezing/neptun/pkg/neptun"
	"github.com/freezing/neptun/pkg/netio"
)

const version = "1.0.0"

var (
	configPath string
	message    string
)

func main() {
	root := &cobra.Command{
		Use:   "neptun-client",
		Short: "Connects to a Neptun server and sends a reliable message once connected",
		RunE:  run,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (defaults built in if omitted)")
	root.Flags().StringVarP(&message, "message", "m", "hello", "reliable message to send once connected")

	if err := root.Execute(); err != nil {
		logger.Fatal("client exited with error: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger.Banner("Neptun Client", version)

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}

	socket, serverAddr, err := netio.Dial(cfg.ServerAddr)
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

	logger.Info("connecting to %s", serverAddr)
	engine.Connect(serverAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	tickInterval := time.Duration(float64(time.Second) / cfg.TickRate)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	sent := false
	for {
		select {
		case now := <-ticker.C:
			if err := engine.Tick(now, onReliable, onUnreliable); err != nil {
				logger.Error("tick failed: %v", err)
				continue
			}
			if !sent && engine.IsConnected(serverAddr) {
				logger.Success("connected to %s", serverAddr)
				engine.SendReliableTo(serverAddr, []byte(message))
				sent = true
			}
		case sig := <-sigChan:
			logger.Warn("received signal: %v", sig)
			return nil
		}
	}
}

func onReliable(addr *net.UDPAddr, msg []byte) {
	logger.Info("reliable message from %s: %s", addr, string(msg))
}

func onUnreliable(addr *net.UDPAddr, msg []byte) {
	logger.Debug("unreliable message from %s: %d bytes", addr, len(msg))
}
