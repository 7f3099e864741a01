package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"clearline-hq/gatekeeper/pkg/cli"
	"clearline-hq/gatekeeper/pkg/rules/source"
)

var lintFlags struct {
	file   string
	dir    string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rule files",
	Long: `Validate rule files for syntax and semantic errors.

The lint command decodes rule documents and performs comprehensive validation:
  - YAML syntax validation
  - Rule structure validation (triggers, condition trees, action lists)
  - Semantic validation (operator and data type pairings, action parameters)

Examples:
  # Lint single file
  gatekeeper lint --file rules.yaml

  # Lint directory
  gatekeeper lint --dir rules/

  # JSON output for CI/CD
  gatekeeper lint --file rules.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "rule file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of rule files")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintResult represents the validation result for a single rule file.
type LintResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Rules  int      `json:"rules"`
	Errors []string `json:"errors,omitempty"`
}

func lintRules(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list rule files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no rule files found")
	}

	loader := source.NewLoader(nil)
	results := make([]LintResult, 0, len(files))
	failed := false

	for _, file := range files {
		result := LintResult{File: file, Valid: true}
		loaded, err := loader.LoadFile(file)
		if err != nil {
			result.Valid = false
			result.Errors = collectErrors(err)
			failed = true
		} else {
			result.Rules = len(loaded)
		}
		results = append(results, result)
	}

	if lintFlags.format == "json" {
		formatter := &cli.JSONFormatter{Indent: true}
		if err := formatter.FormatTo(os.Stdout, results); err != nil {
			return err
		}
	} else {
		for _, result := range results {
			if result.Valid {
				fmt.Printf("✓ %s (%d rules)\n", result.File, result.Rules)
				continue
			}
			fmt.Printf("✗ %s\n", result.File)
			for _, msg := range result.Errors {
				fmt.Printf("    %s\n", msg)
			}
		}
	}

	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

// collectErrors flattens an ErrorList into individual messages.
func collectErrors(err error) []string {
	var list *source.ErrorList
	if errors.As(err, &list) {
		msgs := make([]string, 0, len(list.Errors))
		for _, e := range list.Errors {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}
