package cmd

import (
	"log"
	"net/http"

	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/pulsecheck/pulsecheck/api"
	"github.com/pulsecheck/pulsecheck/constants"
	"github.com/pulsecheck/pulsecheck/store"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the realtime analysis server",
	Long:  `Runs the realtime analysis server`,
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

func serve() {
	st := store.New(constants.GetSessionsDir(), constants.GetSessionBucket())
	server := api.NewServer(st)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{constants.GetAllowedOrigin()},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	addr := constants.GetListenAddr()
	log.Printf("[Serve] listening on %v", addr)
	log.Fatal(http.ListenAndServe(addr, c.Handler(server.Router())))
}
