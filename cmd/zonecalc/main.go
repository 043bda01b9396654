// Package main provides the CLI entrypoint for zonecalc.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/zonecalc/internal/config"
	"github.com/verte-zerg/zonecalc/internal/export"
	"github.com/verte-zerg/zonecalc/internal/extract"
	"github.com/verte-zerg/zonecalc/internal/model"
	"github.com/verte-zerg/zonecalc/internal/report"
	"github.com/verte-zerg/zonecalc/internal/store"
	"github.com/verte-zerg/zonecalc/internal/textimport"
	"github.com/verte-zerg/zonecalc/internal/tracker"
	"github.com/verte-zerg/zonecalc/internal/tui"
	"github.com/verte-zerg/zonecalc/internal/usage"
	"github.com/verte-zerg/zonecalc/internal/zone"
)

const (
	defaultMode    = "GOLD"
	defaultMachine = 1
)

var (
	flagMode    string
	flagMachine int

	exportFormat string
	exportOut    string

	importOverwrite bool
	importAppend    bool
)

// session bundles what most commands need.
type session struct {
	store   *store.Store
	tracker *tracker.Tracker
	machine model.Machine
	fileCfg config.FileConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "zonecalc",
		Short:         "Favorable zone tracker for 沖ドキ GOLD / BLACK",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTUICmd,
	}

	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", defaultMode, "machine mode (GOLD or BLACK)")
	rootCmd.PersistentFlags().IntVar(&flagMachine, "machine", defaultMachine, "machine slot (1 or 2)")

	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newCalcCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newImportTextCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newUsageCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func openSession(cmd *cobra.Command) (*session, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	modeName := flagMode
	machineNum := flagMachine
	applyStringConfig(cmd, "mode", &modeName, fileCfg.Tracker.Mode)
	applyIntConfig(cmd, "machine", &machineNum, fileCfg.Tracker.Machine)

	mode, err := model.ParseMode(modeName)
	if err != nil {
		return nil, fmt.Errorf("invalid --mode value: %w", err)
	}
	machine, err := model.ParseMachine(machineNum)
	if err != nil {
		return nil, fmt.Errorf("invalid --machine value: %w", err)
	}

	storePath := config.DefaultDBPath()
	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	tr, err := tracker.New(cmd.Context(), st, mode)
	if err != nil {
		closeStore(st)
		return nil, err
	}
	if cmd.Flags().Changed("mode") {
		if err := tr.SetMode(cmd.Context(), mode); err != nil {
			closeStore(st)
			return nil, err
		}
	}
	return &session{store: st, tracker: tr, machine: machine, fileCfg: fileCfg}, nil
}

func (s *session) close() {
	closeStore(s.store)
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func runTUICmd(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	importer, err := s.imageImporter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil && !errors.Is(err, extract.ErrMissingAPIKey) {
		return err
	}

	m := tui.NewModel(cmd.Context(), s.tracker, s.machine, importer)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the result sheet for a machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			records, err := s.tracker.View(cmd.Context(), s.machine)
			if err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), records, s.tracker.Mode(), time.Now(), report.Options{Color: stdoutIsTerminal()})
		},
	}
}

func newCalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calc FILE|-",
		Short: "Recalculate records from a JSON file without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			modeName := flagMode
			applyStringConfig(cmd, "mode", &modeName, fileCfg.Tracker.Mode)
			mode, err := model.ParseMode(modeName)
			if err != nil {
				return fmt.Errorf("invalid --mode value: %w", err)
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open records: %w", err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil {
						// Best-effort close for read-only input.
						_ = cerr
					}
				}()
				in = f
			}
			records, err := export.ReadRecords(in)
			if err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), zone.Recalculate(records, mode), mode, time.Now(), report.Options{Color: stdoutIsTerminal()})
		},
	}
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a machine's history",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", string(export.FormatCSV), "export format (csv, json, yaml, xlsx)")
	cmd.Flags().StringVar(&exportOut, "out", "", "output path (default: pachislot_data.<format>, - for stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	records, err := s.tracker.View(cmd.Context(), s.machine)
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" {
		out = "pachislot_data." + string(format)
	}
	if out == "-" {
		if format == export.FormatXLSX && stdoutIsTerminal() {
			return fmt.Errorf("refusing to write xlsx to a terminal; use --out")
		}
		return export.Write(cmd.OutOrStdout(), format, records, time.Now())
	}
	return writeFileAtomic(out, func(w io.Writer) error {
		return export.Write(w, format, records, time.Now())
	})
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import IMAGE",
		Short: "Read history from a screenshot with the extraction service",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	addImportFlags(cmd)
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	cfg, err := s.extractConfig()
	if err != nil {
		return err
	}
	importer, err := s.imageImporter(extract.NewLogger(os.Stderr, cfg.LogLevel))
	if err != nil {
		return errors.New(extract.UserMessage(err))
	}
	logErrln("AI解析中...")
	raws, err := importer(cmd.Context(), args[0])
	if err != nil {
		return errors.New(extract.UserMessage(err))
	}
	return s.applyImport(cmd, raws)
}

func newImportTextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-text FILE",
		Short: "Read history from a text file of \"<games> BB|RB\" lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raws, err := textimport.LoadRecords(args[0])
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			return s.applyImport(cmd, raws)
		},
	}
	addImportFlags(cmd)
	return cmd
}

func addImportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&importAppend, "append", false, "insert before the CURRENT row (default)")
	cmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "replace the history")
	cmd.MarkFlagsMutuallyExclusive("append", "overwrite")
}

func (s *session) applyImport(cmd *cobra.Command, raws []model.RawRecord) error {
	if _, err := s.tracker.ApplyExtracted(cmd.Context(), s.machine, raws, importOverwrite); err != nil {
		return err
	}
	logErrf("Imported %d records into machine %d\n", len(raws), s.machine)
	return nil
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset a machine to the empty template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			if _, err := s.tracker.Clear(cmd.Context(), s.machine); err != nil {
				return err
			}
			logErrf("Cleared machine %d\n", s.machine)
			return nil
		},
	}
}

func newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show remaining image extractions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			cfg, err := s.extractConfig()
			if err != nil {
				return err
			}
			st, err := usage.NewLimiter(s.store, cfg.MaxUses, cfg.Window).Status(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "残り %d/%d 回 (リセットまで %d 分)\n", st.Remaining, st.Max, st.MinutesUntilReset(time.Now()))
			return err
		},
	}
}

func (s *session) extractConfig() (model.ExtractConfig, error) {
	defaults := model.ExtractConfig{
		BaseURL:  extract.DefaultBaseURL,
		User:     extract.DefaultUser,
		Timeout:  extract.DefaultTimeout,
		MaxUses:  usage.DefaultMaxUses,
		Window:   usage.DefaultWindow,
		LogLevel: "warn",
	}
	cfg, err := config.ResolveExtract(s.fileCfg.Extract, defaults, os.Getenv)
	if err != nil {
		return model.ExtractConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// imageImporter wires the extraction client behind the usage allowance.
func (s *session) imageImporter(logger *slog.Logger) (tui.ImageImporter, error) {
	cfg, err := s.extractConfig()
	if err != nil {
		return nil, err
	}
	client, err := extract.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	limiter := usage.NewLimiter(s.store, cfg.MaxUses, cfg.Window)
	return func(ctx context.Context, path string) ([]model.RawRecord, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open image: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				// Best-effort close for read-only image.
				_ = cerr
			}
		}()
		var raws []model.RawRecord
		err = limiter.Run(ctx, func(ctx context.Context) error {
			var extractErr error
			raws, extractErr = client.Extract(ctx, path, f)
			return extractErr
		}, extract.Metered)
		return raws, err
	}, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "zonecalc-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := write(tmpFile); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logErrf("Wrote %s\n", path)
	return nil
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# zonecalc configuration
# Uncomment a value to enable it. CLI flags override config values.

[tracker]
# mode = %q           # GOLD or BLACK
# machine = %d            # Machine slot (1 or 2)

[extract]
# base-url = %q
# api-key-env = %q  # Environment variable holding the API key
# user = %q
# timeout = "2m"
# max-uses = %d           # Image extractions per window
# window = "1h"
# lenient = false         # Scan plain text answers for "<games> BB|RB"
# log-level = "warn"      # debug, info, warn or error
`,
		defaultMode,
		defaultMachine,
		extract.DefaultBaseURL,
		config.DefaultAPIKeyEnv,
		extract.DefaultUser,
		usage.DefaultMaxUses,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
