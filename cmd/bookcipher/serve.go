package main

import (
	"bookcipher/internal/server"

	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve encipher and unencipher requests for library books over HTTP",
		Args:  cobra.NoArgs,
		RunE: a.withLibrary(func(cmd *cobra.Command, args []string) error {
			config := a.config.Server
			if port != 0 {
				config.Port = port
			}

			srv := server.New(config, a.newRand())
			return srv.Run(cmd.Context())
		}),
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")

	return cmd
}
