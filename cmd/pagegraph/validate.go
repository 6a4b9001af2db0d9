package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/pagegraph/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that page contents and blockquote edges agree",
	Long: `Run the consistency checks over the configured store:

  contents     every ref in a page's contents exists and belongs to that page
  membership   every blockquote appears in its page's contents
  parents      every parent ref resolves to an element

Exits non-zero when any check fails.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().String("seed", "", "load a YAML fixture before validating")
	validateCmd.Flags().Bool("json", false, "print the results as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	seedFile, _ := cmd.Flags().GetString("seed")
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := openStore(ctx, seedFile)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := validation.NewConsistencyValidator(store, logger.Logger).Validate(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			status := "✅"
			if !r.Passed {
				status = "❌"
			}
			fmt.Printf("%s %-11s %d checked, %d violations\n", status, r.Check, r.Checked, len(r.Violations))
			for _, v := range r.Violations {
				fmt.Printf("     - %s\n", v)
			}
		}
	}

	for _, r := range results {
		if !r.Passed {
			return fmt.Errorf("consistency check %q failed", r.Check)
		}
	}
	return nil
}
