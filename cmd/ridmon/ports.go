package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robotalks/phoenix.go/pkg/link/serial"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serial.Ports()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, port := range ports {
			fmt.Printf("serial://%s\n", port)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
