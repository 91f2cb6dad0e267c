package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/finlens-org/finlens/api"
	"github.com/finlens-org/finlens/config"
	"github.com/finlens-org/finlens/dataset"
	"github.com/finlens-org/finlens/forecast"
	"github.com/finlens-org/finlens/history"
	"github.com/finlens-org/finlens/profiler"
	"github.com/finlens-org/finlens/service"
)

// ============================================================================
// FINLENS CLI — Ask questions of financial CSVs, or serve the API
// ============================================================================

const version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:           "finlens",
		Short:         "Deterministic natural-language analytics for financial data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAskCmd(), newServeCmd(), newProfileCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// ── ask ─────────────────────────────────────────────────────────────────────

func newAskCmd() *cobra.Command {
	var (
		file   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "ask \"question\"",
		Short: "Answer one natural-language question against a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadCSV(file)
			if err != nil {
				return err
			}

			analyst := service.NewAnalyst(
				service.WithForecaster(forecast.NewEngine()),
				service.WithLogger(quietLogger()),
			)
			analyst.Load(t)

			answer, err := analyst.Ask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderAnswer(cmd.OutOrStdout(), answer, format)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV data file (required)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: json, pretty, text, csv")
	cmd.MarkFlagRequired("file")
	return cmd
}

func renderAnswer(w io.Writer, answer *service.Answer, format string) error {
	switch format {
	case "json":
		return json.NewEncoder(w).Encode(answer)
	case "pretty":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	case "csv":
		return writeTableCSV(w, answer.Result.Table)
	case "text":
		fmt.Fprintln(w, answer.Result.Explanation)
		if answer.Result.Table.NumRows() > 0 {
			fmt.Fprintln(w)
			return writeTableCSV(w, answer.Result.Table)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want json, pretty, text, or csv)", format)
	}
}

func writeTableCSV(w io.Writer, t *dataset.Table) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	cols := t.Columns()
	if err := cw.Write(cols); err != nil {
		return err
	}
	for i := 0; i < t.NumRows(); i++ {
		row := make([]string, len(cols))
		for j, col := range cols {
			row[j] = t.Value(i, col).String()
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// ── serve ───────────────────────────────────────────────────────────────────

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	return cmd
}

func runServer(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	opts := []service.AnalystOption{
		service.WithForecaster(forecast.NewEngine()),
		service.WithLogger(log),
		service.WithCacheLimit(cfg.CacheSize),
	}
	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, service.WithHistory(store))
	}
	analyst := service.NewAnalyst(opts...)

	if cfg.DataFile != "" {
		t, err := loadCSV(cfg.DataFile)
		if err != nil {
			return err
		}
		analyst.Load(t)
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewServer(analyst, log, api.WithAllowedOrigins(cfg.CORSOrigins)).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
	}
	return nil
}

// ── profile ─────────────────────────────────────────────────────────────────

func newProfileCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Print detected column roles and dataset stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadCSV(file)
			if err != nil {
				return err
			}
			roles := profiler.DetectRoles(t)

			out := struct {
				Rows    int               `json:"rows"`
				Columns []string          `json:"columns"`
				Roles   map[string]string `json:"roles"`
			}{t.NumRows(), t.Columns(), roles}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV data file (required)")
	cmd.MarkFlagRequired("file")
	return cmd
}

// ── version ─────────────────────────────────────────────────────────────────

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "finlens %s\n", version)
		},
	}
}

// ── helpers ─────────────────────────────────────────────────────────────────

func loadCSV(path string) (*dataset.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	t, err := dataset.ParseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// quietLogger keeps one-shot CLI output clean.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
