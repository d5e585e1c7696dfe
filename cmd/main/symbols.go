package main

import (
	"context"
	"fmt"
	"os"

	"market-aggregator/src/models"
	"market-aggregator/src/utils"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newSymbolsCmd() *cobra.Command {
	var o overrides
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "Resolve the configured symbol sources and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSymbols(cmd.Context(), o)
		},
	}
	o.bind(cmd)
	return cmd
}

// -----------------------------------------------------------------------------

func listSymbols(ctx context.Context, o overrides) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	archive, err := setupStorage(cfg)
	if err != nil {
		return err
	}
	if archive != nil {
		defer archive.Close()
	}

	market, alwaysOn, err := setupSymbols(ctx, cfg, setupNetwork(cfg), archive)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Symbol", "Class", "Calendar"})
	table.SetAutoWrapText(false)

	rows := 0
	always := make(map[string]bool, len(alwaysOn))
	for _, sym := range alwaysOn {
		always[sym] = true
		table.Append([]string{sym, models.ClassAlwaysOn, "24/7"})
		rows++
	}
	for _, sym := range market {
		if always[sym] {
			continue
		}
		table.Append([]string{sym, models.ClassMarketHours, utils.MICForSymbol(sym)})
		rows++
	}
	table.SetFooter([]string{"", "total", fmt.Sprintf("%d", rows)})
	table.Render()

	perHour := cfg.Provider.RequestsPerHour
	fmt.Printf("One full pass over %d symbols takes about %.0f seconds at %d requests/hour\n",
		rows, utils.EstimateUpdateSeconds(rows, perHour), perHour)
	return nil
}
