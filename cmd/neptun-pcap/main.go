// Command neptun-pcap reads a packet capture and prints the Neptun
// structure of every UDP datagram on a given port, for offline debugging of
// a captured session.
package main

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/spf13/cobra"

	"github.com/freezing/neptun/pkg/logger"
	"github.com/freezing/neptun/pkg/neptun"
)

var (
	capturePath string
	udpPort     uint16
)

func main() {
	root := &cobra.Command{
		Use:   "neptun-pcap",
		Short: "Describes the Neptun structure of every UDP datagram in a capture file",
		RunE:  run,
	}
	root.Flags().StringVarP(&capturePath, "file", "f", "", "path to a .pcap or .pcapng capture (required)")
	root.Flags().Uint16VarP(&udpPort, "port", "p", 9001, "UDP port the Neptun traffic runs on")
	root.MarkFlagRequired("file")

	if err := root.Execute(); err != nil {
		logger.Fatal("neptun-pcap failed: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	handle, err := pcap.OpenOffline(capturePath)
	if err != nil {
		return fmt.Errorf("open capture %s: %w", capturePath, err)
	}
	defer handle.Close()

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	count := 0
	for packet := range source.Packets() {
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok {
			continue
		}
		if uint16(udp.SrcPort) != udpPort && uint16(udp.DstPort) != udpPort {
			continue
		}
		payload := udp.Payload
		if len(payload) == 0 {
			continue
		}

		count++
		fmt.Printf("--- datagram #%d (%d bytes, %s -> %s) ---\n",
			count, len(payload), udp.SrcPort, udp.DstPort)
		fmt.Print(neptun.DescribeDatagram(payload))
	}

	logger.Info("described %d Neptun datagrams from %s", count, capturePath)
	return nil
}
