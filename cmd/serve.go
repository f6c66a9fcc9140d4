package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/scheduler"
	"github.com/sells-group/casino-research/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		hub := server.NewHub()
		go hub.Run(ctx)

		archiveOn := cfg.Archive.Bucket != ""
		env, err := initResearchEnv(ctx, "serve", envOptions{notifier: hub, archive: archiveOn})
		if err != nil {
			return err
		}
		defer env.Close()

		sched := scheduler.New(scheduledJob(env.Service))
		defer sched.Stop()
		if err := sched.Start(scheduler.Config{
			Enabled:        cfg.Scheduler.Enabled,
			CronExpression: cfg.Scheduler.CronExpression,
		}); err != nil {
			return err
		}

		srv := server.New(cfg.Server, server.Deps{
			Offers:    env.Offers,
			Research:  env.Service,
			Store:     env.Store,
			Scheduler: sched,
			Hub:       hub,
		})
		return srv.ListenAndServe(ctx)
	},
}

// scheduledJob runs research across all states with the schedule's options.
func scheduledJob(svc server.Researcher) scheduler.Job {
	return func(ctx context.Context, sc scheduler.Config) error {
		res, err := svc.Execute(ctx, model.ResearchRequest{
			IncludeCasinoDiscovery: sc.IncludeCasinoDiscovery,
			IncludeOfferResearch:   sc.IncludeOfferResearch,
		})
		if err != nil {
			return err
		}
		zap.L().Info("scheduled research saved",
			zap.String("run_id", res.RunID),
			zap.Int("better_offers", res.BetterOfferCount()),
		)
		return nil
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
