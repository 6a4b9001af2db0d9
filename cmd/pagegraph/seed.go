package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/pagegraph/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load a YAML fixture into the configured store",
	Long: `Create the pages and blockquotes listed in a YAML fixture and print the
ref assigned to each fixture key. Use sqlite or bolt storage to keep them.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if cfg.Storage.Type == "memory" {
		logger.Warn("Seeding memory storage: entities are discarded when the command exits")
	}

	store, err := openStore(ctx, "")
	if err != nil {
		return err
	}
	defer store.Close()

	refs, err := seed.LoadFile(ctx, args[0], store, logger.Logger)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s\t%s\n", k, refs[k])
	}
	return nil
}
