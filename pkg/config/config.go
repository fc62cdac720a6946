// Package config loads the YAML configuration shared by the server and
// client command-line tools.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BandwidthConfig mirrors neptun.BandwidthLimit in a form that round-trips
// through YAML.
type BandwidthConfig struct {
	MaxReadPacketRate uint8  `yaml:"max_read_packet_rate"`
	MaxReadPacketSize uint16 `yaml:"max_read_packet_size"`
	MaxSendPacketRate uint8  `yaml:"max_send_packet_rate"`
	MaxSendPacketSize uint16 `yaml:"max_send_packet_size"`
}

// Config is the top-level shape of neptun.yaml.
type Config struct {
	ListenAddr          string          `yaml:"listen_addr"`
	ServerAddr          string          `yaml:"server_addr"`
	MetricsAddr         string          `yaml:"metrics_addr"`
	TickRate            float64         `yaml:"tick_rate"`
	NumRedundantPackets int             `yaml:"num_redundant_packets"`
	ReliableBufferSize  int             `yaml:"reliable_buffer_size"`
	PacketTimeoutMillis int             `yaml:"packet_timeout_millis"`
	Bandwidth           BandwidthConfig `yaml:"bandwidth"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		ListenAddr:          "0.0.0.0:9001",
		ServerAddr:          "127.0.0.1:9001",
		MetricsAddr:         "0.0.0.0:9090",
		TickRate:            20,
		NumRedundantPackets: 3,
		ReliableBufferSize:  64 * 1024,
		PacketTimeoutMillis: 5000,
		Bandwidth: BandwidthConfig{
			MaxReadPacketRate: 60,
			MaxReadPacketSize: 1400,
			MaxSendPacketRate: 60,
			MaxSendPacketSize: 1400,
		},
	}
}

// Load reads and parses a YAML config file on top of Default(): a field the
// file does not mention keeps its default value, while a field the file
// sets, even to zero, overrides it. Use Default() directly for zero-config
// runs.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}
