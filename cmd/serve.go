package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/server"
)

var (
	servePort     int
	serveSeedFile string
	serveNoSeed   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the map board HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initBoard(ctx, serveSeedFile)
		if err != nil {
			return err
		}
		defer env.Close()

		if !serveNoSeed {
			n, err := env.Board.SeedShelters(ctx)
			if err != nil {
				zap.L().Warn("shelter seeding failed, starting with an empty shelter layer", zap.Error(err))
			} else {
				zap.L().Info("shelter layer seeded", zap.Int("shelters", n))
			}
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.New(env.Board, env.Tiles).Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveSeedFile, "seed-file", "", "seed shelters from a YAML fixture instead of the pet data API")
	serveCmd.Flags().BoolVar(&serveNoSeed, "no-seed", false, "start without seeding the shelter layer")
	rootCmd.AddCommand(serveCmd)
}
