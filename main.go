package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dnldd/marketgraph/service"
	"github.com/dnldd/marketgraph/shared"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	start, end, err := cfg.Window()
	if err != nil {
		log.Printf("parsing analysis window: %v", err)
		return
	}

	instruments := shared.DefaultUniverse()
	if len(cfg.Symbols) > 0 {
		instruments = shared.NewUniverse(cfg.Symbols)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	graphCfg := service.GraphConfig{
		Instruments:      instruments,
		FMPAPIKey:        cfg.FMPAPIKey,
		Start:            start,
		End:              end,
		OutputPath:       cfg.Output,
		EdgeCutoff:       cfg.EdgeCutoff,
		Watch:            cfg.Watch,
		DatabaseEndpoint: cfg.DBEndpoint,
		DatabaseUser:     cfg.DBUser,
		DatabasePass:     cfg.DBPass,
		Cancel:           cancel,
	}
	graphSvc, err := service.NewGraph(ctx, &graphCfg)
	if err != nil {
		log.Printf("creating graph service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	graphSvc.Run(ctx)
}
