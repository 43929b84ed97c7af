package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/pdfprecheck/internal/bundle"
	"github.com/nikhilbhutani/pdfprecheck/internal/config"
	"github.com/nikhilbhutani/pdfprecheck/internal/models"
	"github.com/nikhilbhutani/pdfprecheck/internal/precheck"
)

type buildOptions struct {
	output  string
	asJSON  bool
	verbose bool
}

func buildCommand(newExtractor ExtractorFunc) *cobra.Command {
	opts := buildOptions{}
	cmd := &cobra.Command{
		Use:   "build <file.pdf>...",
		Short: "Extract PDFs and write the structured precheck text",
		Long: "Extracts every PDF (text layer first, OCR for scans) and writes the\n" +
			"structured text to <CLIENT_ID>_precheck_input.txt, or to --output.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, opts, newExtractor)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output file ("-" for stdout)`)
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "write the full bundle as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log each extracted document")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string, opts buildOptions, newExtractor ExtractorFunc) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	uploads := make([]precheck.Upload, 0, len(args))
	for _, p := range args {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		uploads = append(uploads, precheck.Upload{Filename: filepath.Base(p), Data: data})
	}

	svc := precheck.NewService(newExtractor(cfg), nil, cfg.Extract.Workers)
	b, err := svc.Process(cmd.Context(), models.RunSourceCLI, uploads)
	if err != nil {
		return err
	}

	for _, w := range b.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	for _, d := range b.Documents {
		if d.Error != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", d.Filename, d.Error)
		}
	}

	dest := opts.output
	if dest == "" {
		dest = b.Filename
	}
	if dest == "-" {
		return writeBundle(cmd.OutOrStdout(), b, opts.asJSON)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writeBundle(f, b, opts.asJSON); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d documents, client %s, ~%d tokens)\n",
		dest, len(b.Documents), b.ClientID, b.Estimate.Tokens)
	return nil
}

func writeBundle(w io.Writer, b *bundle.Bundle, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("encode bundle: %w", err)
		}
		return nil
	}
	if _, err := io.WriteString(w, b.Text); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}
