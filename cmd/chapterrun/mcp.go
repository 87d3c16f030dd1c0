package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	runmcp "github.com/deixis/chapterrun/internal/mcp"
	"github.com/deixis/chapterrun/internal/report"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMCPCmd(opts *options) *cobra.Command {
	var (
		instructions bool
		httpAddr     string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), runmcp.Instructions)
				return nil
			}

			e, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()

			ctx, stop := signalContext()
			defer stop()

			store := report.NewLRUStore(5, report.NewDiskStore(""))
			server := runmcp.NewServer(e.cfg, e.runner, store, e.workspace, &runmcp.Options{
				Log:       e.log,
				Language:  opts.lang,
				Overrides: e.overrides,
				Timeout:   opts.timeout,
			})

			if httpAddr != "" {
				return serveHTTP(ctx, server, httpAddr, e.log)
			}
			return server.Run(ctx, &mcpsdk.StdioTransport{})
		},
	}

	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve over HTTP on `addr` (e.g. :9090) instead of stdio")
	return cmd
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, log *zap.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Info("listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
