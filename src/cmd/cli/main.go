package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/recognizer"
	"screen-ocr-overlay/src/runtimeinit"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath   string
	jsonOutput bool
	verbose    bool
	dataDir    string
}

type recognizeFunc func(ctx context.Context, img image.Image) (recognizer.Result, error)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"ocr-tool"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-tool",
		Short:         "Run on-device OCR on PNG input and manage the copy history",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.filePath == "" {
				return fmt.Errorf("--file is required")
			}
			return runWithOptions(cmd.Context(), cmd.OutOrStdout(), *opts)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Directory holding the history database")

	cmd.AddCommand(newHistoryCmd(opts))
	return cmd
}

func (o cliOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{DataDirOverride: o.dataDir}
}

func runWithOptions(ctx context.Context, out io.Writer, opts cliOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := runtimeinit.Bootstrap(ctx, runtimeinit.Options{
		LoadOptions: opts.loadOptions(),
		Verbose:     opts.verbose,
		Recognizer:  true,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	slog.Debug("CLI: config loaded", "latin", rt.Config.OCRLatinLang, "cjk", rt.Config.OCRCJKLang, "contrast", rt.Config.OCRContrast)

	recognize := func(ctx context.Context, img image.Image) (recognizer.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, rt.Config.OCRDeadline())
		defer cancel()
		return rt.Recognizer.Recognize(ctx, img)
	}
	return processOCR(ctx, out, opts, recognize)
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "json", "verbose", "data-dir"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

func readInput(path string, verbose bool) ([]byte, error) {
	if path == "-" {
		if verbose {
			fmt.Fprintf(os.Stderr, "[verbose] Reading image from stdin\n")
		}
		data, err := io.ReadAll(io.LimitReader(os.Stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return data, nil
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Reading image from file: %s\n", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return data, nil
}

func validatePNG(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("input file is empty")
	}
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

func processOCR(ctx context.Context, out io.Writer, opts cliOptions, recognize recognizeFunc) error {
	data, err := readInput(opts.filePath, opts.verbose)
	if err != nil {
		return err
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if err := validatePNG(data); err != nil {
		return err
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode PNG: %w", err)
	}
	if opts.verbose {
		b := img.Bounds()
		fmt.Fprintf(os.Stderr, "[verbose] Decoded %dx%d image, starting recognition\n", b.Dx(), b.Dy())
	}

	start := time.Now()
	res, err := recognize(ctx, img)
	elapsed := time.Since(start)
	if err != nil {
		if opts.verbose {
			fmt.Fprintf(os.Stderr, "[verbose] OCR failed after %v: %v\n", elapsed, err)
		}
		return fmt.Errorf("OCR failed: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] OCR completed in %v: %d characters, script %s\n", elapsed, len([]rune(res.Text)), res.Script)
	}

	return outputResult(out, res, opts.filePath, elapsed, opts.jsonOutput)
}

type OCRResult struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Timestamp  string  `json:"timestamp"`
	Duration   float64 `json:"duration_seconds"`
	CharCount  int     `json:"character_count"`
	Script     string  `json:"script"`
	Confidence float64 `json:"confidence"`
}

func outputResult(out io.Writer, res recognizer.Result, sourcePath string, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprint(out, res.Text)
		return err
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(OCRResult{
		Text:       res.Text,
		Source:     sourcePath,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Duration:   elapsed.Seconds(),
		CharCount:  len([]rune(res.Text)),
		Script:     res.Script.String(),
		Confidence: res.Confidence,
	}); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
