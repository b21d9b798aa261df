package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robotalks/phoenix.go/pkg/link/loopback"
	"github.com/robotalks/phoenix.go/pkg/radio"
	"github.com/robotalks/phoenix.go/pkg/remoteid"
	"github.com/robotalks/phoenix.go/pkg/sensors"
	"github.com/robotalks/phoenix.go/pkg/telemetry"
)

var decodeFile string

var decodeCmd = &cobra.Command{
	Use:   "decode [HEX...]",
	Short: "Decode captured messages",
	Long: `Decode 90-byte Remote ID messages given as hex strings, or read raw
from --file, and print the record and the corrected bit positions.`,
	RunE: runDecode,
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode the configured record as hex",
	Long: `Build the record of a stationary aircraft at the configured home
position and print the framed message as hex, e.g. to feed decode.`,
	Args: cobra.NoArgs,
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(decodeCmd, encodeCmd)
	decodeCmd.Flags().StringVarP(&decodeFile, "file", "f", "", "Read a raw message from file")
}

func runDecode(cmd *cobra.Command, args []string) error {
	var msgs [][]byte
	if decodeFile != "" {
		data, err := os.ReadFile(decodeFile)
		if err != nil {
			return err
		}
		msgs = append(msgs, data)
	}
	for _, arg := range args {
		data, err := hex.DecodeString(strings.Join(strings.Fields(arg), ""))
		if err != nil {
			return fmt.Errorf("invalid hex: %w", err)
		}
		msgs = append(msgs, data)
	}
	if len(msgs) == 0 {
		return fmt.Errorf("no message to decode")
	}
	var failed int
	for _, data := range msgs {
		if err := decodeMessage(data); err != nil {
			fmt.Printf("error: %v\n", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed to decode", failed, len(msgs))
	}
	return nil
}

func decodeMessage(data []byte) error {
	m, err := radio.MessageFromBytes(data)
	if err != nil {
		return err
	}
	rec, report, err := radio.Unframe(m)
	if n := report.Corrected(); n > 0 {
		fmt.Printf("corrected %d bits at %v\n", n, report.Positions())
	}
	if err != nil {
		return err
	}
	fmt.Println(telemetry.NewSummary(rec, report))
	return nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	serial, err := conf.SerialNumber()
	if err != nil {
		return err
	}
	out := loopback.New(1)
	b := &telemetry.Broadcaster{
		Serial:         serial,
		ControlStation: &sensors.StaticGPS{Pos: conf.ControlStation.Position()},
		Aircraft:       &sensors.StaticGPS{Pos: conf.Home.Position()},
		Velocity:       &sensors.StaticGPS{},
		Subsystems:     &remoteid.Subsystems{},
		Link:           out,
	}
	if err := b.Broadcast(); err != nil {
		return err
	}
	msg, err := out.Recv()
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(msg))
	return nil
}
