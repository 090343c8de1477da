package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"hl7bridge/internal/config"
	"hl7bridge/internal/engine"
	"hl7bridge/internal/mapping"
)

type transformOptions struct {
	configPath   string
	settingsPath string
	outDir       string
	workers      int
}

func newTransformCmd() *cobra.Command {
	var opts transformOptions

	cmd := &cobra.Command{
		Use:   "transform FILE|DIR...",
		Short: "Transform messages with a mapping configuration",
		Long: `Transform each input file. Directories are searched for files with the
configuration's input extension (.hl7, .xml or .json). Results are written to
--out with the output format's extension, or to stdout when --out is not set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runTransform(ctx, cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "mapping configuration (YAML or JSON)")
	flags.StringVarP(&opts.settingsPath, "settings", "s", "", "runtime settings (TOML)")
	flags.StringVarP(&opts.outDir, "out", "o", "", "output directory (overrides [output] dir)")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "messages in flight (overrides [batch] workers)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runTransform(ctx context.Context, cmd *cobra.Command, opts transformOptions, args []string) error {
	settings := config.Default()

	if opts.settingsPath != "" {
		s, err := config.Load(opts.settingsPath)
		if err != nil {
			return err
		}

		settings = s
	}

	if opts.outDir != "" {
		settings.Output.Dir = opts.outDir
	}

	if opts.workers > 0 {
		settings.Batch.Workers = opts.workers
	}

	f, err := mapping.LoadFile(opts.configPath)
	if err != nil {
		return err
	}

	settings.ApplyTo(f)

	logger := settings.Logger(cmd.ErrOrStderr())

	e, err := engine.New(f, engine.WithLogger(logger), engine.WithIndent(settings.Indent()))
	if err != nil {
		return err
	}

	for _, w := range e.ConfigWarnings() {
		logger.Warn("mapping configuration", "diagnostic", w.String())
	}

	plan := e.Plan()

	inputs, stems, err := collectInputs(args, plan.InputFormat)
	if err != nil {
		return err
	}

	if len(inputs) == 0 {
		return fmt.Errorf("no %s input files found", plan.InputFormat)
	}

	logger.Info("transforming", "files", len(inputs), "workers", settings.Batch.Workers, "plan", plan.Describe())

	results, err := e.TransformBatch(ctx, inputs, settings.Batch.Workers)
	if err != nil {
		return fmt.Errorf("transform interrupted: %w", err)
	}

	return report(cmd, results, stems, settings.Output.Dir, plan.OutputFormat)
}

// collectInputs reads the named files and every file with the input
// format's extension below the named directories. stems maps each input to
// its output name without extension: the base name for a named file, the
// path relative to the directory otherwise. Two inputs sharing a stem are
// rejected.
func collectInputs(args []string, format mapping.Format) ([]engine.BatchInput, map[string]string, error) {
	var inputs []engine.BatchInput

	stems := make(map[string]string)
	owners := make(map[string]string)

	add := func(path, rel string) error {
		stem := strings.TrimSuffix(rel, filepath.Ext(rel))
		if prev, ok := owners[stem]; ok {
			return fmt.Errorf("inputs %s and %s both write %s.%s", prev, path, stem, format)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		owners[stem] = path
		stems[path] = stem
		inputs = append(inputs, engine.BatchInput{Name: path, Data: data})

		return nil
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, nil, fmt.Errorf("input %s: %w", arg, err)
		}

		if !info.IsDir() {
			if err := add(arg, filepath.Base(arg)); err != nil {
				return nil, nil, err
			}

			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() || !matchesFormat(path, format) {
				return nil
			}

			rel, err := filepath.Rel(arg, path)
			if err != nil {
				return err
			}

			return add(path, rel)
		})
		if err != nil {
			return nil, nil, err
		}
	}

	return inputs, stems, nil
}

func matchesFormat(path string, format mapping.Format) bool {
	ext := strings.ToLower(filepath.Ext(path))

	switch format {
	case mapping.FormatHL7:
		return ext == ".hl7" || ext == ".txt"
	default:
		return ext == "."+string(format)
	}
}

// report writes every result and prints a summary. It fails when any
// message failed.
func report(cmd *cobra.Command, results []engine.BatchResult, stems map[string]string, outDir string, format mapping.Format) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	var written, excluded, failed int

	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(stderr, "FAIL %s: %v\n", r.Name, r.Err)

			continue

		case r.Result.Excluded:
			excluded++
			fmt.Fprintf(stderr, "SKIP %s: excluded by %s\n", r.Name, r.Result.ExcludedBy)

			continue
		}

		for _, w := range r.Result.Warnings {
			fmt.Fprintf(stderr, "WARN %s: %v\n", r.Name, w)
		}

		if err := writeResult(stdout, outDir, stems[r.Name], r, format); err != nil {
			return err
		}

		written++
	}

	fmt.Fprintf(stderr, "%d written, %d excluded, %d failed\n", written, excluded, failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed", failed, len(results))
	}

	return nil
}

func writeResult(stdout io.Writer, outDir, stem string, r engine.BatchResult, format mapping.Format) error {
	if outDir == "" {
		_, err := stdout.Write(r.Result.Output)
		return err
	}

	target := filepath.Join(outDir, stem+"."+string(format))

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if err := os.WriteFile(target, r.Result.Output, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	return nil
}
