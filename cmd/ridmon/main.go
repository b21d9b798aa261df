// ridmon is the ground monitor of Phoenix Remote ID broadcasts.
package main

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/robotalks/phoenix.go/pkg/env"
)

var conf *env.Config

var rootCmd = &cobra.Command{
	Use:   "ridmon",
	Short: "Phoenix Remote ID ground monitor",
	Long: `ridmon receives, decodes and republishes Phoenix Remote ID broadcasts.

The radio link is selected by --link (or PHOENIX_LINK_URL):
  Serial bridge:  serial:///dev/ttyUSB0?baud=57600
  MQTT:           mqtt://host:1883/phoenix/
  WebSocket:      ws://host:8080/rid`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	env.SetupFlags()
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
}

// loadConfig copies the flags parsed by cobra back to the Go flag set,
// so glog and env see them as set.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if err == nil && flag.Lookup(f.Name) != nil {
			err = flag.Set(f.Name, f.Value.String())
		}
	})
	if err != nil {
		return err
	}
	if err := flag.CommandLine.Parse(nil); err != nil {
		return err
	}
	conf, err = env.Load()
	return err
}

func main() {
	defer glog.Flush()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
