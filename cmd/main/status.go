package main

import (
	"context"
	"fmt"
	"time"

	"market-aggregator/src/grpc_control"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func newStatusCmd() *cobra.Command {
	var (
		addr    string
		class   string
		history string
		list    bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running service over its gRPC control port",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := loadConfig(overrides{})
				if err != nil {
					return err
				}
				host := cfg.Control.GrpcHost
				if host == "" || host == "0.0.0.0" {
					host = "127.0.0.1"
				}
				addr = fmt.Sprintf("%s:%d", host, cfg.Control.GrpcPort)
			}

			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return err
			}
			defer conn.Close()

			client := grpc_control.NewAggregatorControlClient(conn)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var out *structpb.Struct
			switch {
			case history != "":
				out, err = client.GetHistory(ctx, history)
			case list || class != "":
				out, err = client.ListSymbols(ctx, class)
			default:
				out, err = client.GetStatus(ctx)
			}
			if err != nil {
				return err
			}

			text, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Println(string(text))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "control address host:port (default from config)")
	cmd.Flags().BoolVar(&list, "symbols", false, "list symbols instead of the service status")
	cmd.Flags().StringVar(&class, "class", "", "restrict --symbols to market or always_on")
	cmd.Flags().StringVar(&history, "history", "", "print the rolling history of one symbol")
	return cmd
}
