package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/silbinarywolf/simple-game/internal/app"
	"github.com/silbinarywolf/simple-game/internal/bridge"
	"github.com/silbinarywolf/simple-game/internal/bridge/server"
	"github.com/silbinarywolf/simple-game/internal/config"
	"github.com/silbinarywolf/simple-game/internal/logging"
)

// version is set with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:           "simple-game",
		Short:         "A window with one button that spawns balls",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{
				ConfigFile: configFile,
				Flags:      cmd.Flags(),
			})
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	cmd.Flags().Bool("test-mode", false, "start the test bridge server on TEST_PORT (default 9222)")
	cmd.Flags().String("font", "", "path to a TTF/OTF/TTC font for UI text")
	cmd.Flags().StringVar(&configFile, "config", "", "config file (default is ./simple-game.yaml if present)")
	return cmd
}

func run(cfg config.Config) error {
	logger, err := logging.Setup(logging.Options{
		File:   cfg.Log.File,
		Debug:  cfg.Log.Debug,
		Stderr: !cfg.TestMode,
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	var (
		channel    *bridge.Channel
		testServer *server.Server
	)
	if cfg.TestMode {
		channel = bridge.NewChannel()
		defer channel.Close()
		dispatcher := bridge.NewDispatcher(channel, logger.With("component", "bridge"), bridge.DispatcherOptions{
			CommandTimeout:    cfg.Bridge.CommandTimeout,
			ScreenshotTimeout: cfg.Bridge.ScreenshotTimeout,
		})
		testServer = server.New(dispatcher, logger.With("component", "server"), server.Options{
			Host:    cfg.Bridge.Host,
			Port:    cfg.Bridge.Port,
			Name:    "simple-game",
			Version: version,
			WebRTC: server.WebRTCOptions{
				Enabled:  cfg.Bridge.WebRTC.Enabled,
				PublicIP: cfg.Bridge.WebRTC.PublicIP,
				STUNPort: cfg.Bridge.WebRTC.STUNPort,
			},
		})
		if err := testServer.Start(); err != nil {
			logger.Error("unable to start test server", "err", err)
			return errors.Wrap(err, "unable to start test server")
		}
	}

	game := app.New(app.Options{
		Config: cfg,
		Log:    logger,
		Bridge: channel,
	})

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		sig, ok := <-signals
		if !ok {
			return
		}
		logger.Info("received signal, stopping", "signal", sig.String())
		game.Stop()
	}()

	runErr := game.Run()

	if testServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := testServer.Shutdown(ctx); err != nil {
			logger.Warn("test server shutdown", "err", err)
		}
	}
	return runErr
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "simple-game:", err)
		os.Exit(1)
	}
}
