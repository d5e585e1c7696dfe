package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"market-aggregator/src/config"
	"market-aggregator/src/logger"
	"market-aggregator/src/models"
	"market-aggregator/src/subscriber"

	"github.com/spf13/cobra"
)

func main() {
	var (
		configPath string
		transport  string
		symbolList string
		host       string
	)

	root := &cobra.Command{
		Use:          "subscriber",
		Short:        "Print messages published by a running market-aggregator",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(configPath)
			if err != nil {
				return err
			}
			if err := logger.Configure(cfg.LogLevel, ""); err != nil {
				return err
			}
			log := logger.NewLogger(cfg, "Subscriber")

			var sub subscriber.ISubscriber
			switch strings.ToLower(transport) {
			case "websocket", "ws":
				sub = subscriber.NewWebsocketSubscriber(host, cfg.Publish.Websocket.Port)
			case "redis":
				sub = subscriber.NewRedisSubscriber(cfg.Publish.Redis)
			default:
				return fmt.Errorf("unknown transport %q (options: websocket, redis)", transport)
			}

			var symbols []string
			if symbolList != "" {
				symbols = strings.Split(symbolList, ",")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("Listening on %s for %s", transport, describe(symbols))
			return sub.Subscribe(ctx, symbols, func(m models.MMessage) {
				r := m.Record
				fmt.Printf("%s %-10s %-9s %s O=%.4f H=%.4f L=%.4f C=%.4f V=%.0f\n",
					m.PublishedAt.Format("15:04:05"), m.Symbol, m.Kind,
					r.Timestamp.Format("2006-01-02 15:04"), r.Open, r.High, r.Low, r.Close, r.Volume)
			})
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "config/default.yaml", "path to config file")
	root.Flags().StringVarP(&transport, "transport", "t", "websocket", "websocket or redis")
	root.Flags().StringVarP(&symbolList, "symbols", "s", "", "comma separated symbols, empty for every symbol")
	root.Flags().StringVar(&host, "host", "127.0.0.1", "websocket host")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func describe(symbols []string) string {
	if len(symbols) == 0 {
		return "every symbol"
	}
	return strings.Join(symbols, ", ")
}
