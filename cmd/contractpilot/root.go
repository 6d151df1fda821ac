package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/contractpilot/internal/analysis"
	"github.com/dshills/contractpilot/internal/anonymize"
	"github.com/dshills/contractpilot/internal/config"
	"github.com/dshills/contractpilot/internal/lawref"
	"github.com/dshills/contractpilot/internal/llm"
	"github.com/dshills/contractpilot/internal/logging"
	"github.com/dshills/contractpilot/internal/profile"
	"github.com/dshills/contractpilot/internal/server"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contractpilot",
		Short: "Risk review for Korean contracts",
		Long: `contractpilot splits a Korean contract into clauses, masks personal data,
asks a language model to score each clause and aggregates the results into a
risk report. It runs as an HTTP API (serve) or as one-shot commands.`,
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file (default: contractpilot.yaml in . or "+config.ConfigDir()+")")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newAnonymizeCmd())
	cmd.AddCommand(newRestoreCmd())
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newSegmentCmd())
	return cmd
}

// loadConfig reads and validates the configuration named by --config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, withCode(exitCodeBadInput, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, withCode(exitCodeBadInput, fmt.Errorf("configuration error: %w", err))
	}
	return cfg, nil
}

// app holds the components shared by serve and analyze.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	engine   *anonymize.Engine
	laws     *lawref.Store
	client   *llm.Client
	analyzer *analysis.Analyzer
}

// newApp builds the component graph from cfg. Logs go to logOut.
func newApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := logging.New(logOut, logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Redact: cfg.Log.Redact,
	})
	if err != nil {
		return nil, withCode(exitCodeBadInput, err)
	}

	prof, err := profile.Load(cfg.LLM.Profile)
	if err != nil {
		return nil, withCode(exitCodeBadInput, err)
	}

	engine := anonymize.New(anonymize.WithMatchTimeout(cfg.Anonymization.MatchTimeout))

	laws, err := lawref.New()
	if err != nil {
		return nil, err
	}

	client, err := llm.New(llm.Options{
		Provider:        cfg.LLM.Provider,
		Model:           cfg.LLM.Model,
		BaseURL:         cfg.LLM.BaseURL,
		APIKey:          cfg.LLM.APIKey,
		MaxTokens:       cfg.LLM.MaxTokens,
		Anonymize:       cfg.Anonymization.Enabled,
		PreserveAmounts: cfg.Anonymization.PreserveAmounts,
		StrictOutput:    cfg.LLM.StrictOutput,
		Profile:         prof,
		Debug:           cfg.LLM.Debug,
	}, engine, logger)
	if err != nil {
		return nil, withCode(exitCodeAPIError, err)
	}

	a := analysis.New(client, laws,
		analysis.WithLogger(logger),
		analysis.WithAnonymizer(engine),
		analysis.WithConcurrency(cfg.Analysis.Concurrency),
		analysis.WithMaxClauses(cfg.Analysis.MaxClauses),
		analysis.WithSimilarCaseThreshold(cfg.Analysis.SimilarCaseThreshold),
		analysis.WithAlternativeThreshold(cfg.Analysis.AlternativeThreshold),
		analysis.WithSimilarCaseLimit(cfg.Analysis.SimilarCaseLimit),
		analysis.WithPrecedents(cfg.Analysis.WithPrecedents),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
		laws:     laws,
		client:   client,
		analyzer: a,
	}, nil
}

// readInput reads the named file, or stdin for "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, withCode(exitCodeBadInput, err)
	}
	return b, nil
}

// writeOutput writes b to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, b []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(b)
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
