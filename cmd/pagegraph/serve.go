package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/pagegraph/internal/gateway"
	"github.com/rohankatakam/pagegraph/internal/resolver"
)

var serveSeed string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON-RPC query gateway on stdio",
	Long: `Read line-delimited JSON-RPC 2.0 requests from stdin and write responses to stdout.

Methods:
  initialize                    server information and query roots
  schema                        declared kinds, edges and unions
  query {root, id?, selection?} resolve a selection`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveSeed, "seed", "", "YAML fixture to load before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, serveSeed)
	if err != nil {
		return err
	}
	defer store.Close()

	res := resolver.New(store, cfg.Resolver, logger.Logger)
	handler := gateway.NewHandler(res, store.Schema(), cfg.Gateway, logger.Logger)
	transport := gateway.NewStdioTransport(handler, os.Stdin, os.Stdout, logger.Logger)

	logger.WithField("storage", cfg.Storage.Type).Info("Gateway listening on stdio")
	if err := transport.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("Gateway stopped")
	return nil
}
