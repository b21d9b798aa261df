package main

import (
	"net/http"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	fx "github.com/robotalks/phoenix.go/pkg/framework"
	"github.com/robotalks/phoenix.go/pkg/link/websocket"
)

var relayAddr string

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run a websocket relay on /rid",
	Long: `Run a websocket relay for software in the loop runs. Every message
sent by a client is forwarded to all other clients, so an aircraft using
--link ws://host:8080/rid reaches a ground monitor using the same URL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hub := websocket.NewHub()
		mux := http.NewServeMux()
		mux.Handle("/rid", hub)
		glog.Infof("relay on %s/rid", relayAddr)
		return fx.NewRunner().HandleSignals().Go(serveHTTP(relayAddr, mux)).Wait()
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)
	relayCmd.Flags().StringVar(&relayAddr, "addr", ":8080", "Listen address")
}
