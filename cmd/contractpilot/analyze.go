package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/contractpilot/internal/analysis"
	"github.com/dshills/contractpilot/internal/config"
	"github.com/dshills/contractpilot/internal/contracttype"
	"github.com/dshills/contractpilot/internal/document"
	"github.com/dshills/contractpilot/internal/llm"
	"github.com/dshills/contractpilot/internal/render"
	"github.com/dshills/contractpilot/internal/schema"
)

// analyzeFlags holds the resolved inputs of one analyze run.
type analyzeFlags struct {
	file         string
	data         []byte // read from file when nil
	contractType string
	format       string // json, markdown
	out          string
	failOn       string // risk level; empty disables
	profileName  string
	provider     string
	model        string
	cfg          *config.Config
	logOut       io.Writer
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a contract file and print a risk report",
		Long: `Analyze reads a .txt or .md contract (UTF-8 or EUC-KR), runs the full
pipeline and prints the report. Use "-" to read from stdin.

Exit codes:
  0  report written
  2  overall risk at or above --fail-on
  3  bad input (file, flags, configuration, empty contract)
  4  provider error
  5  model output invalid (llm.strict_output only)`,
		Args: cobra.ExactArgs(1),
		RunE: runAnalyzeCmd,
	}
	cmd.Flags().StringP("type", "t", "", "Contract type override (e.g. lease, 근로계약서, NDA)")
	cmd.Flags().StringP("format", "f", "markdown", "Output format: json or markdown")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().String("fail-on", "", "Exit 2 when overall risk is at or above this level (low, medium, high, critical)")
	cmd.Flags().String("profile", "", "Review profile (overrides llm.profile)")
	cmd.Flags().String("provider", "", "LLM provider (overrides llm.provider)")
	cmd.Flags().String("model", "", "Model name (overrides llm.model)")
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	f := analyzeFlags{file: args[0], cfg: cfg, logOut: os.Stderr}
	f.contractType, _ = cmd.Flags().GetString("type")
	f.format, _ = cmd.Flags().GetString("format")
	f.out, _ = cmd.Flags().GetString("output")
	f.failOn, _ = cmd.Flags().GetString("fail-on")
	f.profileName, _ = cmd.Flags().GetString("profile")
	f.provider, _ = cmd.Flags().GetString("provider")
	f.model, _ = cmd.Flags().GetString("model")

	if f.file == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return withCode(exitCodeBadInput, err)
		}
		f.file, f.data = "stdin.txt", b
	}
	if f.out == "" {
		f.out = "-"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runAnalyze(ctx, f, cmd.OutOrStdout())
}

// runAnalyze executes one analysis and writes the report to f.out ("-" is
// stdout). The returned error carries an exit code.
func runAnalyze(ctx context.Context, f analyzeFlags, stdout io.Writer) error {
	if f.file == "" {
		return withCode(exitCodeBadInput, errors.New("analyze: no input file"))
	}
	format := strings.ToLower(f.format)
	if format != "json" && format != "markdown" && format != "md" {
		return withCode(exitCodeBadInput, fmt.Errorf("analyze: unknown format %q", f.format))
	}
	var failOn schema.RiskLevel
	if f.failOn != "" {
		l, err := schema.ParseRiskLevel(f.failOn)
		if err != nil {
			return withCode(exitCodeBadInput, err)
		}
		failOn = l
	}
	var override contracttype.Type
	if f.contractType != "" {
		t, err := contracttype.Parse(f.contractType)
		if err != nil {
			return withCode(exitCodeBadInput, err)
		}
		override = t
	}

	cfg := *f.cfg
	if f.profileName != "" {
		cfg.LLM.Profile = f.profileName
	}
	if f.provider != "" {
		cfg.LLM.Provider = strings.ToLower(f.provider)
		cfg.LLM.Model = ""
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}

	data := f.data
	if data == nil {
		b, err := os.ReadFile(f.file)
		if err != nil {
			return withCode(exitCodeBadInput, err)
		}
		data = b
	}
	text, err := document.Extract(f.file, data)
	if err != nil {
		return withCode(exitCodeBadInput, err)
	}

	logOut := f.logOut
	if logOut == nil {
		logOut = io.Discard
	}
	a, err := newApp(&cfg, logOut)
	if err != nil {
		return err
	}

	res, err := a.analyzer.Analyze(ctx, text, override)
	if err != nil {
		return withCode(analysisExitCode(err), err)
	}

	var buf bytes.Buffer
	if format == "json" {
		b, err := render.RenderJSON(res)
		if err != nil {
			return err
		}
		buf.Write(b)
		buf.WriteByte('\n')
	} else if err := render.RenderMarkdown(&buf, res); err != nil {
		return err
	}

	if f.out == "-" {
		if _, err := stdout.Write(buf.Bytes()); err != nil {
			return err
		}
	} else if err := os.WriteFile(f.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("analyze: write %s: %w", f.out, err)
	}

	if failOn != "" && levelRank(res.OverallRiskLevel) >= levelRank(failOn) {
		return withCode(exitCodeFailOn, nil)
	}
	return nil
}

func analysisExitCode(err error) int {
	switch {
	case errors.Is(err, analysis.ErrEmptyText),
		errors.Is(err, analysis.ErrNoClauses),
		errors.Is(err, analysis.ErrTooManyClauses):
		return exitCodeBadInput
	case errors.Is(err, llm.ErrInvalidModelOutput):
		return exitCodeBadOutput
	default:
		return exitCodeAPIError
	}
}

func levelRank(l schema.RiskLevel) int {
	switch l {
	case schema.RiskLow:
		return 1
	case schema.RiskMedium:
		return 2
	case schema.RiskHigh:
		return 3
	case schema.RiskCritical:
		return 4
	}
	return 0
}
