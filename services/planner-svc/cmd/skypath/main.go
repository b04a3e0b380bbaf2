// Command skypath - консольный клиент планировщика: маршруты, справочник сети,
// визуализация и история поездок без запуска HTTP сервиса.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"skypath/pkg/apperror"
	"skypath/pkg/config"
	"skypath/pkg/logger"
	"skypath/services/planner-svc/internal/app"
)

// options общие флаги всех команд
type options struct {
	schedule  string
	format    string
	sheet     string
	delayPath string
	noDelay   bool
	jsonOut   bool
	verbose   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, boldRed("error:"), err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "skypath",
		Short: "Plan earliest-arrival flight itineraries",
		Long: `skypath finds the itinerary that reaches the destination airport as early
as possible over a fixed daily schedule, estimates per-leg delays and renders
the result as a table, document or graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.schedule, "schedule", "", "Schedule file (csv, xlsx, yaml); empty - built-in sample network")
	rootCmd.PersistentFlags().StringVar(&opts.format, "schedule-format", "", "Schedule format; empty - detect by extension")
	rootCmd.PersistentFlags().StringVar(&opts.sheet, "sheet", "", "XLSX sheet with flights")
	rootCmd.PersistentFlags().StringVar(&opts.delayPath, "delay-model", "", "Delay model (.yaml) or training samples (.csv)")
	rootCmd.PersistentFlags().BoolVar(&opts.noDelay, "no-delay", false, "Disable delay prediction")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging to stderr")

	rootCmd.AddCommand(routeCmd(opts))
	rootCmd.AddCommand(airportsCmd(opts))
	rootCmd.AddCommand(flightsCmd(opts))
	rootCmd.AddCommand(graphCmd(opts))
	rootCmd.AddCommand(registerCmd(opts))
	rootCmd.AddCommand(tripsCmd(opts))

	return rootCmd
}

// loadConfig читает конфигурацию и накладывает флаги командной строки
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger.InitWithConfig(logger.Config{Level: level, Format: "text", Output: "stderr"})

	if opts.schedule != "" {
		cfg.Planner.SchedulePath = opts.schedule
	}
	if opts.format != "" {
		cfg.Planner.ScheduleFormat = opts.format
	}
	if opts.sheet != "" {
		cfg.Planner.ScheduleSheet = opts.sheet
	}
	if opts.delayPath != "" {
		cfg.Planner.DelayModelPath = opts.delayPath
	}
	if opts.noDelay {
		cfg.Planner.DelayEnabled = false
	}
	// HTTP ограничения CLI не касаются, аудит не смешивается с выводом команд
	cfg.RateLimit.Enabled = false
	cfg.Audit.Enabled = false
	return cfg, nil
}

// withApp собирает приложение на время выполнения команды
func withApp(ctx context.Context, opts *options, fn func(a *app.App) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitCode: 2 - ошибка входных данных, 3 - маршрут не найден, 1 - остальное
func exitCode(err error) int {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return 1
	}
	switch appErr.Code {
	case apperror.CodeNoRoute:
		return 3
	case apperror.CodeInternal, apperror.CodePersistence, apperror.CodeTimeout:
		return 1
	}
	if apperror.HTTPStatus(err) < 500 {
		return 2
	}
	return 1
}
