package main

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/silbinarywolf/simple-game/internal/e2e"
)

// newServeCmd serves the logs directory so screenshots from a run can be
// looked at in a browser
func newServeCmd() *cobra.Command {
	var (
		dir  string
		addr string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scenario logs and screenshots over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mux := http.NewServeMux()
			mux.Handle("/", http.FileServer(http.Dir(dir)))

			log.Info("listening", "addr", addr, "dir", dir)
			return http.ListenAndServe(addr, mux)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", e2e.DefaultLogsDir, "directory to serve")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "address to listen on")
	return cmd
}
