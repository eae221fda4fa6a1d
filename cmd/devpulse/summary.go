package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/xela07ax/devpulse/internal/console/service"
	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/infra"
)

func newSummaryCmd() *cobra.Command {
	var timeRange, team string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard summary as tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := infra.LoadConfig(configFile)
			if err != nil {
				return err
			}
			logger, err := infra.NewLogger(cfg.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			db, err := openDatabase(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			st, err := loadStore(ctx, cfg, db)
			if err != nil {
				return err
			}
			summary, err := service.NewMetricsService(st, logger).Dashboard(ctx, domain.Filter{TimeRange: timeRange, Team: team})
			if err != nil {
				return err
			}
			return renderSummary(os.Stdout, summary)
		},
	}
	cmd.Flags().StringVar(&timeRange, "time-range", "", "1m, 3m, 6m, 1y or all")
	cmd.Flags().StringVar(&team, "team", "", "team id or name")
	return cmd
}

// renderSummary печатает две таблицы: метрики с динамикой и рейтинг команд.
func renderSummary(w io.Writer, s *domain.DashboardSummary) error {
	// 1. DORA и Flow метрики в каноническом порядке
	metrics := tablewriter.NewWriter(w)
	metrics.Header([]string{"Metric", "Latest", "Change %", "Direction", "Improving"})
	metrics.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var rows [][]string
	for _, names := range [][]string{domain.DoraMetrics, domain.FlowMetrics} {
		for _, name := range names {
			latest, ok := s.Metrics[name]
			if !ok {
				continue
			}
			ch := s.Changes[name]
			rows = append(rows, []string{
				name,
				strconv.FormatFloat(latest, 'f', -1, 64),
				fmt.Sprintf("%+.2f", ch.PercentChange),
				string(ch.Direction),
				strconv.FormatBool(ch.Improving),
			})
		}
	}
	if err := metrics.Bulk(rows); err != nil {
		return err
	}
	if err := metrics.Render(); err != nil {
		return err
	}

	// 2. Рейтинг команд по эффективности
	ranking := tablewriter.NewWriter(w)
	ranking.Header([]string{"Rank", "Team", "Efficiency"})

	ranks := make([][]string, 0, len(s.TeamRanking))
	for i, t := range s.TeamRanking {
		ranks = append(ranks, []string{strconv.Itoa(i + 1), t.Name, strconv.FormatFloat(t.Value, 'f', -1, 64)})
	}
	if err := ranking.Bulk(ranks); err != nil {
		return err
	}
	return ranking.Render()
}
