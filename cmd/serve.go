package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	dialogx "github.com/tanpawarit/Chative-Crop-Advisor/agent/agents/dialog"
	reportx "github.com/tanpawarit/Chative-Crop-Advisor/agent/report"
	statex "github.com/tanpawarit/Chative-Crop-Advisor/agent/state"
	configx "github.com/tanpawarit/Chative-Crop-Advisor/pkg/config"
	metricsx "github.com/tanpawarit/Chative-Crop-Advisor/pkg/metrics"
	telegramx "github.com/tanpawarit/Chative-Crop-Advisor/pkg/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	sessionCfg, err := configx.New[statex.Config]("SESSION")
	if err != nil {
		return fmt.Errorf("load session config: %w", err)
	}
	tgCfg, err := configx.New[telegramx.Config]("TELEGRAM")
	if err != nil {
		return fmt.Errorf("load telegram config: %w", err)
	}
	metricsCfg, err := configx.New[metricsx.Config]("METRICS")
	if err != nil {
		return fmt.Errorf("load metrics config: %w", err)
	}

	m := metricsx.New(nil)

	agg, err := buildAggregator(ctx, m, true)
	if err != nil {
		return err
	}

	store, err := statex.NewStore(*sessionCfg, func() (statex.UpstashRedisConfig, error) {
		cfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return statex.UpstashRedisConfig{}, err
		}
		return *cfg, nil
	})
	if err != nil {
		return err
	}

	svc, err := dialogx.New(store, agg, reportx.Formatter{}, dialogx.WithMetrics(m))
	if err != nil {
		return err
	}

	bot, err := telegramx.New(*tgCfg, svc, nil)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if mem, ok := store.(*statex.MemoryStore); ok {
		g.Go(func() error {
			mem.RunJanitor(gctx, 0)
			return nil
		})
	}
	if metricsCfg.Addr != "" {
		g.Go(func() error {
			return metricsx.Serve(gctx, metricsCfg.Addr, nil)
		})
	}
	g.Go(func() error {
		return bot.Run(gctx)
	})

	log.Info().
		Str("session_backend", sessionCfg.Backend).
		Str("metrics_addr", metricsCfg.Addr).
		Msg("cropbot started")

	err = g.Wait()
	log.Info().Err(err).Msg("cropbot stopped")
	return err
}
