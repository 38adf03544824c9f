package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/grantscout/internal/schedule"
)

var (
	metricsAddr string
	runNow      bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run discovery and reply polling on a schedule until interrupted",
	Long: `Schedule runs two independent jobs: discovery with its digest every
schedule.discovery_interval (default 24h) and reply polling every
schedule.reply_interval (default 30m). schedule.discovery_cron and
schedule.reply_cron override the intervals with cron expressions.
A tick that fires while the same job is still running is skipped.

Example:
  grantscout schedule
  grantscout schedule --metrics-addr :9090 --run-now`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address (default: schedule.metrics_addr)")
	scheduleCmd.Flags().BoolVar(&runNow, "run-now", false, "run both jobs once at startup")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()

	s, err := schedule.New(a.cfg.Schedule, a.pipeline.Service, a.logger.Named("schedule"))
	if err != nil {
		return err
	}

	addr := metricsAddr
	if addr == "" {
		addr = a.cfg.Schedule.MetricsAddr
	}
	if addr != "" {
		srv := serveMetrics(addr, a.logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if runNow {
		s.Discovery.RunOnce(ctx)
		s.Replies.RunOnce(ctx)
	}

	if err := s.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("Scheduler running",
		zap.String("discovery", s.Discovery.Spec),
		zap.String("replies", s.Replies.Spec))

	<-ctx.Done()
	a.logger.Info("Shutting down scheduler")
	s.Stop()
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
