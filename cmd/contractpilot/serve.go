package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/contractpilot/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes analysis, anonymization, classification and segmentation
under /api/v1. The listen address comes from server.addr unless --addr is set.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
	cmd.Flags().StringP("addr", "a", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	a, err := newApp(cfg, os.Stderr)
	if err != nil {
		return err
	}
	info := a.client.Info()
	a.logger.Info("starting",
		"provider", info.Provider,
		"model", info.Model,
		"anonymization", info.AnonymizationEnabled,
		"profile", info.Profile,
	)

	srv := server.New(server.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, a.analyzer, a.laws, a.engine, &info, a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
