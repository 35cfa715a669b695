package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rsakamoto/mediaimport/internal/config"
	"github.com/rsakamoto/mediaimport/internal/history"
	"github.com/rsakamoto/mediaimport/internal/importer"
	"github.com/rsakamoto/mediaimport/internal/logger"
	"github.com/rsakamoto/mediaimport/internal/progress"
	"github.com/rsakamoto/mediaimport/internal/source"
	"github.com/rsakamoto/mediaimport/internal/source/apkg"
	"github.com/rsakamoto/mediaimport/internal/source/gdrive"
	"github.com/rsakamoto/mediaimport/internal/source/local"
	"github.com/rsakamoto/mediaimport/internal/source/mega"
	"github.com/rsakamoto/mediaimport/internal/store/localdir"
)

var (
	version    = "0.2.0"
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mediaimport",
		Short: "Import media files into a collection folder",
		Long: `mediaimport copies image and audio files from a local directory, a
Google Drive shared folder, a MEGA shared folder, or an .apkg archive
into a media collection folder, skipping byte-identical duplicates and
refusing to overwrite same-named files with different content.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// importCmd creates the import command
func importCmd() *cobra.Command {
	var (
		recursive  bool
		collection string
	)

	cmd := &cobra.Command{
		Use:   "import [path-or-url]",
		Short: "Import media from a directory, shared folder URL, or archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location := args[0]

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if collection != "" {
				cfg.Collection = collection
			}
			if cfg.Collection == "" {
				return fmt.Errorf("no collection folder configured; use --collection or the config file")
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Shutdown()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			root, cleanup, err := newRoot(ctx, cfg, location)
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := localdir.New(cfg.Collection)
			if err != nil {
				return err
			}

			printer := progress.NewPrinter(os.Stdout)
			svc := importer.New(st, log)

			start := time.Now()
			done, total := 0, 0
			result := svc.Run(ctx, root, importer.Options{Recursive: recursive}, importer.Callbacks{
				OnProgress: func(d, t int) {
					done, total = d, t
					printer.Update(d, t)
				},
			})
			printer.Finish()

			for _, line := range result.Logs {
				fmt.Println(line)
			}
			fmt.Println(result.Message)

			saveHistory(cfg, log, location, start, done, total, result)

			if !result.Success {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "Include nested folders")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Destination collection folder")

	return cmd
}

// historyCmd creates the history command
func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent import runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			manager, err := history.NewManager(cfg.DataDir)
			if err != nil {
				return err
			}
			defer manager.Close()

			records, err := manager.Recent(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No import runs recorded.")
				return nil
			}

			for _, r := range records {
				fmt.Printf("%s  %-9s  %d/%d files  %s\n",
					r.StartTime.Format("2006-01-02 15:04"),
					r.Status,
					r.FilesImported,
					r.FilesTotal,
					r.Source,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")

	return cmd
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.New(logger.Config{
		Level: logger.ParseLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
		File: logger.FileConfig{
			Enabled:    cfg.Log.File != "",
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			MaxBackups: cfg.Log.MaxBackups,
		},
	})
}

// newRoot picks the backend from the location string and constructs its
// root. The cleanup func releases backend resources after the run.
func newRoot(ctx context.Context, cfg *config.Config, location string) (source.Root, func(), error) {
	nop := func() {}

	switch source.Detect(location) {
	case source.KindGDrive:
		service, err := gdrive.NewService(ctx, gdrive.Credentials{
			APIKey:       cfg.GDrive.APIKey,
			ClientID:     cfg.GDrive.ClientID,
			ClientSecret: cfg.GDrive.ClientSecret,
			TokenPath:    cfg.GDrive.TokenPath,
		})
		if err != nil {
			return nil, nop, err
		}
		root, err := gdrive.NewRoot(ctx, service, location)
		return root, nop, err

	case source.KindMega:
		root, err := mega.NewRoot(ctx, mega.NewClient(), location)
		return root, nop, err

	case source.KindArchive:
		root, err := apkg.NewRoot(location)
		if err != nil {
			return nil, nop, err
		}
		return root, func() { root.Close() }, nil

	default:
		root, err := local.NewRoot(location)
		return root, nop, err
	}
}

func saveHistory(cfg *config.Config, log logger.Logger, location string, start time.Time, done, total int, result importer.Result) {
	manager, err := history.NewManager(cfg.DataDir)
	if err != nil {
		log.Warn("could not open history database", "error", err)
		return
	}
	defer manager.Close()

	record := history.RecordFromResult(location, start, time.Now(), done, total, result)
	if err := manager.SaveRun(record); err != nil {
		log.Warn("could not record import run", "error", err)
	}
}
