package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/dchurbanov/dag-reporter/internal/application"
	"github.com/dchurbanov/dag-reporter/internal/domain"
	"github.com/dchurbanov/dag-reporter/internal/infrastructure/artifact_minio"
	"github.com/dchurbanov/dag-reporter/internal/infrastructure/config"
	"github.com/dchurbanov/dag-reporter/internal/infrastructure/graph_http"
	"github.com/dchurbanov/dag-reporter/internal/infrastructure/logging"
	"github.com/dchurbanov/dag-reporter/internal/infrastructure/status_fs"
	"github.com/dchurbanov/dag-reporter/internal/infrastructure/webdriver_http"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runFlags struct {
	headless   bool
	dagID      string
	status     string
	dateRange  string
	subject    string
	recipients string
	send       bool
}

var runCmd = &cobra.Command{
	Use:           "run",
	Short:         "Run the capture-and-report pipeline once",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(cfgPath, overridesFrom(cmd))
		if err != nil {
			return domain.FailAt(domain.StageConfig, err)
		}

		log := logging.New(cfg.LogFile)
		defer func() { _ = log.Sync() }()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		uc, params := buildPipeline(ctx, log, cfg)

		log.Info("start",
			zap.String("version", version),
			zap.String("dag", cfg.DagID),
			zap.String("scheduler", cfg.BaseURL),
			zap.Bool("headless", cfg.Headless),
			zap.Bool("send", cfg.Send),
		)

		res := uc.Run(ctx, params)
		if !res.OK {
			return domain.FailAt(res.FailedStage, errors.New(res.Cause))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runFlags.headless, "headless", false, "run browser in headless mode")
	runCmd.Flags().StringVar(&runFlags.dagID, "dag-id", "", "DAG to capture (overrides env/config)")
	runCmd.Flags().StringVar(&runFlags.status, "status-filter", "", "filter runs by status (success|failed|running)")
	runCmd.Flags().StringVar(&runFlags.dateRange, "date-range", "", `filter runs by date range (e.g. "2025-03-01 to 2025-03-13")`)
	runCmd.Flags().StringVar(&runFlags.subject, "email-subject", "", "custom email subject")
	runCmd.Flags().StringVar(&runFlags.recipients, "email-recipients", "", "comma-separated recipients (overrides env/config)")
	runCmd.Flags().BoolVar(&runFlags.send, "send-email", false, "send the email instead of leaving a draft")
	rootCmd.AddCommand(runCmd)
}

// overridesFrom keeps only flags the user actually set, so unset flags
// never shadow file or environment values.
func overridesFrom(cmd *cobra.Command) config.Overrides {
	var ov config.Overrides
	if cmd.Flags().Changed("headless") {
		ov.Headless = &runFlags.headless
	}
	if cmd.Flags().Changed("dag-id") {
		ov.DagID = &runFlags.dagID
	}
	if cmd.Flags().Changed("status-filter") {
		ov.StatusFilter = &runFlags.status
	}
	if cmd.Flags().Changed("date-range") {
		ov.DateRange = &runFlags.dateRange
	}
	if cmd.Flags().Changed("email-subject") {
		ov.Subject = &runFlags.subject
	}
	if cmd.Flags().Changed("email-recipients") {
		ov.Recipients = &runFlags.recipients
	}
	if cmd.Flags().Changed("send-email") {
		ov.Send = &runFlags.send
	}
	return ov
}

func buildPipeline(ctx context.Context, log *zap.Logger, cfg config.Settings) (*application.ReportUseCase, application.Params) {
	browser := webdriver_http.New(cfg.WebDriverURL, cfg.Headless, cfg.ArtifactsDir, cfg.Wait, log)
	mailer := graph_http.New(ctx, cfg.TenantID, cfg.ClientID, cfg.ClientSecret, log)

	opts := []application.Option{
		application.WithStatusSink(status_fs.New(cfg.StatusPath)),
	}
	if cfg.Minio.Endpoint != "" {
		store, err := artifact_minio.New(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.UseSSL)
		if err != nil {
			log.Warn("object store disabled", zap.Error(err))
		} else {
			opts = append(opts, application.WithArtifactStore(store))
		}
	}

	uc := application.NewReportUseCase(log, browser, mailer, opts...)

	params := application.Params{
		BaseURL:      cfg.BaseURL,
		DagID:        cfg.DagID,
		Filters:      filtersFrom(cfg),
		Recipients:   cfg.Recipients,
		Subject:      cfg.Subject,
		BodyTemplate: cfg.BodyTemplate,
		Send:         cfg.Send,
	}

	return uc, params
}

func filtersFrom(cfg config.Settings) domain.Filters {
	return domain.Filters{Status: cfg.StatusFilter, DateRange: cfg.DateRange}
}
