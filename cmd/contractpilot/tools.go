package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/contractpilot/internal/anonymize"
	"github.com/dshills/contractpilot/internal/clause"
	"github.com/dshills/contractpilot/internal/contracttype"
	"github.com/dshills/contractpilot/internal/document"
)

// ── anonymize ───────────────────────────────────────────────────────────────

func newAnonymizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anonymize <file>",
		Short: "Mask personal data in a contract",
		Long: `Anonymize prints the masked text. With --mapping the mask-to-original
mapping is written as JSON so that "contractpilot restore" can reverse it.`,
		Args: cobra.ExactArgs(1),
		RunE: runAnonymizeCmd,
	}
	cmd.Flags().Bool("preserve-amounts", false, "Leave monetary amounts unmasked")
	cmd.Flags().StringP("mapping", "m", "", "Write the mapping JSON to this file")
	cmd.Flags().StringP("output", "o", "", "Write the masked text to a file instead of stdout")
	cmd.Flags().Bool("stats", false, "Print per-category counts to stderr")
	return cmd
}

func runAnonymizeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	text, err := readDocument(cmd, args[0])
	if err != nil {
		return err
	}
	preserve, _ := cmd.Flags().GetBool("preserve-amounts")
	mappingPath, _ := cmd.Flags().GetString("mapping")
	out, _ := cmd.Flags().GetString("output")
	showStats, _ := cmd.Flags().GetBool("stats")

	engine := anonymize.New(anonymize.WithMatchTimeout(cfg.Anonymization.MatchTimeout))
	res := engine.Anonymize(text, preserve)

	if mappingPath != "" {
		b, err := json.MarshalIndent(res.Mapping, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(mappingPath, b, 0o600); err != nil {
			return fmt.Errorf("anonymize: write mapping: %w", err)
		}
	}
	if showStats {
		tw := tabwriter.NewWriter(cmd.ErrOrStderr(), 0, 4, 2, ' ', 0)
		for _, c := range engine.Categories() {
			if n := res.Stats[c]; n > 0 {
				fmt.Fprintf(tw, "%s\t%d\n", c, n)
			}
		}
		fmt.Fprintf(tw, "total\t%d\n", res.Stats.Total())
		tw.Flush()
	}
	return writeOutput(cmd, out, []byte(res.Text))
}

// ── restore ─────────────────────────────────────────────────────────────────

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Reverse an anonymization using its mapping",
		Args:  cobra.ExactArgs(1),
		RunE:  runRestoreCmd,
	}
	cmd.Flags().StringP("mapping", "m", "", "Mapping JSON written by anonymize (required)")
	cmd.Flags().StringP("output", "o", "", "Write the restored text to a file instead of stdout")
	_ = cmd.MarkFlagRequired("mapping")
	return cmd
}

func runRestoreCmd(cmd *cobra.Command, args []string) error {
	mappingPath, _ := cmd.Flags().GetString("mapping")
	out, _ := cmd.Flags().GetString("output")

	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(mappingPath)
	if err != nil {
		return withCode(exitCodeBadInput, err)
	}
	m := anonymize.NewMapping()
	if err := json.Unmarshal(raw, m); err != nil {
		return withCode(exitCodeBadInput, fmt.Errorf("restore: parse mapping: %w", err))
	}
	return writeOutput(cmd, out, []byte(anonymize.Restore(string(text), m)))
}

// ── classify ────────────────────────────────────────────────────────────────

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file>",
		Short: "Guess the contract type and show keyword scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, contracttype.Classify(text))
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for _, s := range contracttype.Scores(text) {
				fmt.Fprintf(tw, "  %s\t%d\t%v\n", s.Type, s.Score, s.Matched)
			}
			return tw.Flush()
		},
	}
}

// ── segment ─────────────────────────────────────────────────────────────────

func newSegmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment <file>",
		Short: "Split a contract into clauses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			clauses := clause.Split(text)
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(clauses)
			}
			w := cmd.OutOrStdout()
			for _, c := range clauses {
				fmt.Fprintf(w, "[%d] %s (%d자)\n", c.Number, c.Title, len([]rune(c.Content)))
			}
			fmt.Fprintf(w, "total: %d\n", len(clauses))
			return nil
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Print clauses as JSON")
	return cmd
}

// readDocument reads a contract file (or stdin for "-") and decodes it.
func readDocument(cmd *cobra.Command, name string) (string, error) {
	data, err := readInput(cmd, name)
	if err != nil {
		return "", err
	}
	if name == "-" {
		name = "stdin.txt"
	}
	text, err := document.Extract(name, data)
	if err != nil {
		return "", withCode(exitCodeBadInput, err)
	}
	return text, nil
}
