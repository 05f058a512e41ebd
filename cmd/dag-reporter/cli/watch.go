package cli

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dchurbanov/dag-reporter/internal/application"
	"github.com/dchurbanov/dag-reporter/internal/infrastructure/config"
	"github.com/dchurbanov/dag-reporter/internal/infrastructure/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline repeatedly on the configured interval",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Resolve(cfgPath, overridesFrom(cmd))
		if err != nil {
			_, _ = os.Stderr.WriteString(err.Error() + "\n")
			os.Exit(1)
		}

		log := logging.New(cfg.LogFile)
		defer func() { _ = log.Sync() }()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		uc, params := buildPipeline(ctx, log, cfg)
		sched := application.NewScheduler(log, uc, params, cfg.Interval, cfg.PauseFile)
		watchAndReload(cfgPath, log, sched)

		log.Info("watch start",
			zap.String("version", version),
			zap.String("dag", cfg.DagID),
			zap.Duration("every", cfg.Interval),
			zap.String("pause_file", cfg.PauseFile),
		)
		sched.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().BoolVar(&runFlags.headless, "headless", false, "run browser in headless mode")
	watchCmd.Flags().StringVar(&runFlags.dagID, "dag-id", "", "DAG to capture (overrides env/config)")
	watchCmd.Flags().StringVar(&runFlags.status, "status-filter", "", "filter runs by status (success|failed|running)")
	watchCmd.Flags().StringVar(&runFlags.dateRange, "date-range", "", "filter runs by date range")
	watchCmd.Flags().StringVar(&runFlags.subject, "email-subject", "", "custom email subject")
	watchCmd.Flags().StringVar(&runFlags.recipients, "email-recipients", "", "comma-separated recipients (overrides env/config)")
	watchCmd.Flags().BoolVar(&runFlags.send, "send-email", false, "send the email instead of leaving a draft")
	rootCmd.AddCommand(watchCmd)
}

// watchAndReload swaps the scheduler's params when the config file
// changes, with a short debounce over editor write bursts.
func watchAndReload(cfgPath string, log *zap.Logger, sched *application.Scheduler) {
	if cfgPath == "" {
		return
	}

	dir := filepath.Dir(cfgPath)
	base := filepath.Base(cfgPath)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("fsnotify init failed", zap.Error(err))
		return
	}

	go func() {
		defer func() { _ = w.Close() }()

		var timer *time.Timer
		fire := func() {
			cfg, err := config.Resolve(cfgPath, config.Overrides{})
			if err != nil {
				log.Warn("config reload failed", zap.Error(err))
				return
			}
			sched.UpdateParams(application.Params{
				BaseURL:      cfg.BaseURL,
				DagID:        cfg.DagID,
				Filters:      filtersFrom(cfg),
				Recipients:   cfg.Recipients,
				Subject:      cfg.Subject,
				BodyTemplate: cfg.BodyTemplate,
				Send:         cfg.Send,
			})
		}

		startTimer := func() {
			if timer == nil {
				timer = time.AfterFunc(300*time.Millisecond, fire)
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(300 * time.Millisecond)
		}

		if err := w.Add(dir); err != nil {
			log.Warn("fsnotify add dir failed", zap.String("dir", dir), zap.Error(err))
			return
		}

		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					startTimer()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("fsnotify error", zap.Error(err))
			}
		}
	}()
}
