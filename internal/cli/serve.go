package cli

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/commentpulse/internal/pipeline"
	"github.com/ppiankov/commentpulse/internal/server"
	"github.com/ppiankov/commentpulse/internal/telemetry"
)

var (
	serveFlags analysisFlags
	serveAddr  string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis API",
	Long: `Serve exposes comment analysis over HTTP:

  POST /api/v1/analyze            analyze {videoId, comments|texts, analysisPrompt, analysisMethod, refresh}
  GET  /api/v1/analyses/:videoId  cached analysis for a video
  DELETE /api/v1/analyses/:videoId  drop the cached analysis
  GET  /health                    status, timestamp and uptime
  GET  /health/backend            generative backend reachability
  GET  /metrics                   Prometheus metrics

Example:
  commentpulse serve
  commentpulse serve --addr :8080 --provider ollama --model llama3`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if err := serveFlags.apply(cmd, cfg); err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger := slog.Default()
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	p, err := pipeline.FromConfig(ctx, cfg, metrics, logger)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			logger.Warn("[CLI] Close failed", slog.Any("error", cerr))
		}
	}()

	return server.New(cfg.Server, p, prometheus.DefaultGatherer, logger).Run(ctx)
}
