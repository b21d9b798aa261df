package main

import (
	"context"
	"net/http"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/robotalks/phoenix.go/pkg/env"
	fx "github.com/robotalks/phoenix.go/pkg/framework"
	"github.com/robotalks/phoenix.go/pkg/link/mqtt"
	"github.com/robotalks/phoenix.go/pkg/radio"
	"github.com/robotalks/phoenix.go/pkg/remoteid"
	"github.com/robotalks/phoenix.go/pkg/telemetry"
)

// SummarySuffix is the topic suffix of republished summaries.
const SummarySuffix = "/summary"

var feedAddr string

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Decode broadcasts from the link",
	Long: `Receive Remote ID messages from the link, decode and log them.

Decoded records are streamed as CBOR to websocket clients of /feed on
--feed-addr. On an MQTT link they are also republished to <serial>/summary.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().StringVar(&feedAddr, "feed-addr", ":8081", "Listen address of the summary feed, empty to disable")
}

func runListen(cmd *cobra.Command, args []string) error {
	radioLink, err := conf.OpenLink(env.Ground)
	if err != nil {
		return err
	}
	reg := telemetry.NewRegistry()
	feed := telemetry.NewFeed()
	mqttLink, _ := radioLink.(*mqtt.Adapter)

	receiver := &telemetry.Receiver{
		Link:    radioLink,
		Metrics: telemetry.NewMetrics(reg),
		Handler: func(rec remoteid.Record, report radio.Report) {
			s := telemetry.NewSummary(rec, report)
			if s.Emergency() {
				glog.Warningf("EMERGENCY %s", s)
			} else {
				glog.Info(s)
			}
			if err := feed.Publish(s); err != nil {
				glog.Errorf("feed: %v", err)
			}
			if mqttLink != nil {
				republish(mqttLink.Queue, s)
			}
		},
	}

	loop := fx.NewLoop()
	loop.Interval = conf.Timestep
	loop.Add(receiver)
	if conf.MetricsAddr != "" {
		loop.AddRunnable(&telemetry.MetricsServer{Addr: conf.MetricsAddr, Gatherer: reg})
	}
	if feedAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/feed", feed)
		loop.AddRunnable(fx.NamedRun("feed", serveHTTP(feedAddr, mux)))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	receiver.OnClosed = cancel
	glog.Infof("listening on %s", conf.LinkURL)
	return fx.NewRunnerWith(ctx).HandleSignals().Go(loop).Wait()
}

func republish(q *mqtt.Queue, s telemetry.Summary) {
	data, err := telemetry.EncodeSummary(s)
	if err != nil {
		glog.Errorf("encode summary: %v", err)
		return
	}
	topic := s.Serial + SummarySuffix
	go func() {
		token := q.Pub(topic, data)
		if token.Wait() && token.Error() != nil {
			glog.Warningf("republish %s: %v", topic, token.Error())
		}
	}()
}

func serveHTTP(addr string, handler http.Handler) fx.RunFunc {
	return func(ctx context.Context) error {
		srv := &http.Server{Addr: addr, Handler: handler}
		glog.Infof("serving on %s", addr)
		err := fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
