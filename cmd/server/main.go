// Command server runs the facility-booking UDP server.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Iyzyman/distributed-go/internal/metrics"
	"github.com/Iyzyman/distributed-go/internal/server"
)

var (
	portFlag            = flag.Int("port", 9876, "UDP port to listen on")
	semanticFlag        = flag.String("semantic", "AT_MOST_ONCE", "Invocation semantics: AT_MOST_ONCE or AT_LEAST_ONCE")
	lossRateFlag        = flag.Float64("lossRate", 0.0, "probability of dropping an incoming datagram")
	replyLossRateFlag   = flag.Float64("replyLossRate", 0.0, "probability of dropping a reply or callback")
	delayMsFlag         = flag.Int64("delayMs", 0, "synthetic reply delay in milliseconds")
	cacheTTLSecondsFlag = flag.Uint64("cacheTtlSeconds", 300, "duplicate-request cache TTL in seconds")
	metricsAddrFlag     = flag.String("metricsAddr", "", "if set, serve Prometheus metrics at this address (e.g. :9100)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: server [flags]\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unknown arguments: %v\n", flag.Args())
		os.Exit(2)
	}

	semantic, err := parseSemantic(*semanticFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := server.Config{
		Port:          *portFlag,
		Semantic:      semantic,
		LossRate:      *lossRateFlag,
		ReplyLossRate: *replyLossRateFlag,
		DelayMs:       server.ClampDelayMs(*delayMsFlag),
		CacheTTL:      time.Duration(*cacheTTLSecondsFlag) * time.Second,
	}

	var collector *metrics.Collector
	if *metricsAddrFlag != "" {
		collector, err = metrics.New(nil)
		if err != nil {
			log.Fatalf("failed to register metrics: %v", err)
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			if err := http.ListenAndServe(*metricsAddrFlag, mux); err != nil {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
		log.Printf("metrics listening on %s", *metricsAddrFlag)
	}

	srv, err := server.NewWithMetrics(cfg, collector)
	if err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
	defer srv.Close()

	log.Printf("server listening on %s semantic=%s lossRate=%.3f replyLossRate=%.3f delayMs=%d cacheTtl=%s",
		srv.LocalAddr(), *semanticFlag, cfg.LossRate, cfg.ReplyLossRate, cfg.DelayMs, cfg.CacheTTL)

	if err := srv.Run(); err != nil {
		log.Fatalf("server loop terminated: %v", err)
	}
}

func parseSemantic(s string) (server.Semantic, error) {
	switch strings.ToUpper(s) {
	case "AT_MOST_ONCE":
		return server.AtMostOnce, nil
	case "AT_LEAST_ONCE":
		return server.AtLeastOnce, nil
	default:
		return 0, fmt.Errorf("unknown semantic %q: choose AT_MOST_ONCE or AT_LEAST_ONCE", s)
	}
}

