package main

import (
	"context"

	"market-aggregator/src/config"
	"market-aggregator/src/interfaces"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"
	"market-aggregator/src/network"
	"market-aggregator/src/publisher"
	"market-aggregator/src/server"
	"market-aggregator/src/storage"
	"market-aggregator/src/symbols"
)

// -----------------------------------------------------------------------------

// setupStorage opens the optional archive, nil when storage is disabled.
func setupStorage(cfg *config.Config) (interfaces.IDatabase, error) {
	archive, err := storage.NewArchive(cfg.Storage, cfg.Name)
	if err != nil || archive == nil {
		return nil, err
	}
	if err := archive.Initialize(); err != nil {
		return nil, err
	}
	return archive, nil
}

// -----------------------------------------------------------------------------

func setupNetwork(cfg *config.Config) *network.NetworkManager {
	return network.NewNetworkManager(cfg.Provider, logger.NewLogger(cfg, "NetworkManager"))
}

// -----------------------------------------------------------------------------

// setupSymbols resolves both symbol classes. Table sources read through the
// postgres archive.
func setupSymbols(ctx context.Context, cfg *config.Config, netMgr interfaces.INetworkManager, archive interfaces.IDatabase) (market, alwaysOn []string, err error) {
	loader := symbols.NewLoader(netMgr, nil)
	if pg, ok := archive.(*storage.PostgresArchive); ok {
		loader.Tables = pg
	}

	if market, err = loader.Load(ctx, models.ClassMarketHours, cfg.Symbols.Market); err != nil {
		return nil, nil, err
	}
	if alwaysOn, err = loader.Load(ctx, models.ClassAlwaysOn, cfg.Symbols.AlwaysOn); err != nil {
		return nil, nil, err
	}
	return market, alwaysOn, nil
}

// -----------------------------------------------------------------------------

// setupTransports builds the enabled transports. The websocket server is also
// returned so the status provider can be attached once the service exists.
// With nothing else enabled the local logging feed is used.
func setupTransports(cfg *config.Config) ([]interfaces.ITransport, *server.PublishServer, error) {
	var transports []interfaces.ITransport
	var ws *server.PublishServer

	if cfg.Publish.Websocket.Enabled {
		ws = server.NewPublishServer(cfg.Publish.Websocket, verbose)
		transports = append(transports, ws)
	}
	if cfg.Publish.Redis.Enabled {
		transports = append(transports, publisher.NewRedisTransport(cfg.Publish.Redis))
	}
	if cfg.Publish.Local.Enabled || len(transports) == 0 {
		local, err := publisher.NewLoggingLocalTransport(logger.NewLogger(cfg, "LocalFeed"))
		if err != nil {
			return nil, nil, err
		}
		transports = append(transports, local)
	}
	return transports, ws, nil
}
