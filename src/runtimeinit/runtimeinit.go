// Package runtimeinit brings up the shared runtime for both binaries:
// configuration, logging, history store, clipboard and the recognizer.
package runtimeinit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"screen-ocr-overlay/src/clipboard"
	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/history"
	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/recognizer"
	"screen-ocr-overlay/src/recognizer/tesseract"
)

type Options struct {
	LoadOptions config.LoadOptions
	// Verbose logs to stderr when file logging is off.
	Verbose bool

	History bool
	// Prune drops history entries past the configured retention window.
	Prune bool

	Clipboard bool
	// Recognizer builds the dual-engine recognizer. Engines load lazily.
	Recognizer bool
}

type Runtime struct {
	Config     *config.Config
	History    *history.Store
	Recognizer *recognizer.Recognizer
}

func Bootstrap(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logutil.Setup(logutil.Options{
		FileLogging: cfg.EnableFileLogging,
		Dir:         cfg.DataDir,
		Verbose:     opts.Verbose,
		Level:       cfg.LogLevel,
	})

	rt := &Runtime{Config: cfg}
	if opts.History {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		rt.History = store
	}
	if opts.Prune && rt.History != nil {
		pruned, err := rt.History.Prune(ctx, cfg.HistoryRetention())
		if err != nil {
			slog.Warn("History prune failed", "error", err)
		} else if pruned > 0 {
			slog.Info("History pruned", "entries", pruned, "retention_days", cfg.HistoryRetentionDays)
		}
	}

	if opts.Clipboard {
		if err := clipboard.Init(); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}

	if opts.Recognizer {
		rec, err := tesseract.NewRecognizer(cfg.OCRLatinLang, cfg.OCRCJKLang, recognizer.Options{
			Contrast:  cfg.OCRContrast,
			PreferCJK: cfg.OCRPreferCJK,
		})
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to build recognizer: %w", err)
		}
		rt.Recognizer = rec
	}

	slog.Debug("Runtime ready", "data_dir", cfg.DataDir, "hotkey", cfg.Hotkey)
	return rt, nil
}

func (rt *Runtime) Close() error {
	var errs []error
	if rt.Recognizer != nil {
		errs = append(errs, rt.Recognizer.Close())
	}
	if rt.History != nil {
		errs = append(errs, rt.History.Close())
	}
	return errors.Join(errs...)
}
