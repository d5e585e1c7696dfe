package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"market-aggregator/src/aggregation"
	"market-aggregator/src/data_source/yahoo"
	"market-aggregator/src/grpc_control"
	"market-aggregator/src/helpers"
	"market-aggregator/src/logger"
	"market-aggregator/src/publisher"
	"market-aggregator/src/storage"
	"market-aggregator/src/utils"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var o overrides
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the aggregation service until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o)
		},
	}
	o.bind(cmd)
	return cmd
}

// -----------------------------------------------------------------------------

func run(o overrides) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	appLogger := logger.NewLogger(cfg, cfg.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	archive, err := setupStorage(cfg)
	if err != nil {
		appLogger.Critical("Failed to open archive: %v", err)
		return err
	}
	if archive != nil {
		defer archive.Close()
	}

	// 2. Provider and symbols
	netMgr := setupNetwork(cfg)
	calendar := utils.NewTradingCalendar(cfg.Market.CalendarMIC, cfg.Location())
	source := yahoo.NewYahooFinanceSource(cfg.Provider, calendar.Location(), netMgr)

	market, alwaysOn, err := setupSymbols(ctx, cfg, netMgr, archive)
	if err != nil {
		appLogger.Critical("Failed to load symbols: %v", err)
		return err
	}

	// 3. Publishing
	transports, ws, err := setupTransports(cfg)
	if err != nil {
		appLogger.Critical("Failed to set up transports: %v", err)
		return err
	}
	if !cfg.Publish.Websocket.Enabled && !cfg.Publish.Redis.Enabled && !cfg.Publish.Local.Enabled {
		appLogger.Warning("No transport enabled, messages go to the local log feed only")
	}
	pub := publisher.NewPublisher(cfg.CadenceValue(), transports, archive)

	// 4. Service
	svc, err := aggregation.NewAggregationService(cfg, market, alwaysOn, aggregation.ServiceDeps{
		Source:    source,
		Publisher: pub,
		Calendar:  calendar,
	})
	if err != nil {
		appLogger.Critical("Failed to create aggregation service: %v", err)
		return err
	}
	if ws != nil {
		ws.SetStatusProvider(svc)
	}

	if err := pub.Start(ctx); err != nil {
		appLogger.Critical("Failed to start transports: %v", err)
		return err
	}
	defer func() {
		if err := pub.Stop(); err != nil {
			appLogger.Warning("Transport shutdown: %v", err)
		}
	}()

	// 5. Control plane and housekeeping
	if cfg.Control.GrpcEnabled {
		control := grpc_control.NewControlService(svc)
		if err := control.Listen(cfg.Control.GrpcHost, cfg.Control.GrpcPort); err != nil {
			appLogger.Critical("Failed to start gRPC control: %v", err)
			return helpers.NewConfigurationError(err, "grpc control")
		}
		defer control.Stop()
	}

	if archive != nil && cfg.Storage.RetentionDays > 0 {
		retention := storage.NewRetentionJob(archive, cfg.Storage.CleanupAt, calendar.Location())
		if err := retention.Start(); err != nil {
			appLogger.Error("Retention job disabled: %v", err)
		} else {
			defer retention.Stop()
		}
	}

	appLogger.Info("Running %s at cadence %s. Stop with ctrl-c", cfg.Name, cfg.Cadence)
	err = svc.Run(ctx)
	appLogger.Info("Shutting down...")
	return err
}
