package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rohankatakam/pagegraph/internal/errors"
	"github.com/rohankatakam/pagegraph/internal/models"
	"github.com/rohankatakam/pagegraph/internal/resolver"
)

var (
	queryID            uint64
	querySeed          string
	queryJSONSelection bool
)

var queryCmd = &cobra.Command{
	Use:   "query <root> [selection]",
	Short: "Resolve a selection against the store",
	Long: `Resolve a selection against one of the query roots (` + strings.Join(resolver.Roots(), ", ") + `).

The selection uses the compact form, for example:
  pagegraph query blockquote 'id lines page { contents { id } } parent { id }' --id 2

With --json-selection it is an ordered JSON mapping instead:
  pagegraph query page '{"id": true, "contents": {"lines": true}}' --json-selection

Without a selection every field of the root entity is returned, with deep
edges expanded and shallow edges as {"$ref": "kind:id"}.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Uint64Var(&queryID, "id", 0, "root entity id (default: lowest id of the root kind)")
	queryCmd.Flags().StringVar(&querySeed, "seed", "", "YAML fixture to load before querying")
	queryCmd.Flags().BoolVar(&queryJSONSelection, "json-selection", false, "parse the selection as an ordered JSON mapping")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sel resolver.Selection
	if len(args) == 2 {
		var err error
		if queryJSONSelection {
			sel, err = resolver.ParseSelectionJSON([]byte(args[1]))
		} else {
			sel, err = resolver.ParseSelection(args[1])
		}
		if err != nil {
			return err
		}
	}

	store, err := openStore(ctx, querySeed)
	if err != nil {
		return err
	}
	defer store.Close()

	req := resolver.Request{Root: args[0], Selection: sel}
	if cmd.Flags().Changed("id") {
		id := models.ID(queryID)
		req.ID = &id
	}

	res := resolver.New(store, cfg.Resolver, logger.Logger)
	value, err := res.Resolve(ctx, req)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"type":     errors.GetType(err).String(),
			"severity": errors.GetSeverity(err).String(),
		}).Debug("Query failed")
		if e, ok := errors.As(err); ok && verbose {
			fmt.Fprint(os.Stderr, e.DetailedString())
		}
		return err
	}

	for path, marker := range value.Errors() {
		logger.WithField("path", path).Warnf("%s: %s", marker.Type, marker.Message)
	}
	return printJSON(value)
}

// printJSON writes v to stdout, indented when stdout is a terminal
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if term.IsTerminal(int(os.Stdout.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
