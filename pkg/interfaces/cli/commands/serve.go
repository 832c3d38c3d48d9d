package commands

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/vsinha/mrp-aps/pkg/interfaces/api"
)

func buildServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner over HTTP",
		Long: `serve exposes runs, suggestions, exceptions, capacity and what-if scenarios under /v1,
Prometheus metrics under /metrics and a liveness check under /healthz. It stops on
SIGINT or SIGTERM after draining in-flight requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Logger.Sync() //nolint:errcheck

			if addr == "" {
				addr = a.Config.HTTP.Addr
			}

			gin.SetMode(gin.ReleaseMode)
			routerOpts := api.Options{Logger: a.Logger, Gatherer: a.Registry}
			if a.Metrics != nil {
				routerOpts.Metrics = a.Metrics
			}
			router := api.NewRouter(api.NewHandler(a.Planner, a.WhatIf, a.Events), routerOpts)
			return api.Serve(cmd.Context(), addr, router, a.Logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
