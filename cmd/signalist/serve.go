package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/signalist/signalist/api"
	"github.com/signalist/signalist/internal/digest"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		market := newMarket()
		go market.Cache().RunJanitor(ctx, 5*time.Minute)

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		deps := api.Deps{
			Market:    market,
			Watchlist: store,
			Logger:    logger.Named("api"),
			Version:   version,
		}

		if cfg.Digest.Enabled {
			provider := newLLM()
			if provider != nil {
				if err := pingLLM(ctx, provider); err != nil {
					logger.Warn("llm provider check failed, digest runs may fail",
						zap.String("provider", provider.Name()), zap.Error(err))
				}
			}
			job := newDigestJob(market, store, provider)
			sched, err := digest.NewScheduler(job, cfg.Digest.Schedule, logger.Named("cron"))
			if err != nil {
				return err
			}
			sched.Start()
			defer func() { <-sched.Stop().Done() }()
			deps.Digest = job
		} else {
			logger.Info("daily news digest disabled")
		}

		if cfg.Polygon.APIKey == "" {
			logger.Warn("polygon API key not set; market-data endpoints will return empty results")
		}

		srv := api.NewServer(cfg, deps)
		fmt.Println(titleStyle.Render("Signalist API on " + cfg.Addr()))
		if err := srv.ListenAndServe(ctx, cfg.Addr()); err != nil {
			logger.Error("server stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "override api.port")
}
