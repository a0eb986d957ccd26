package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/vistoria-lab/vistoria/pkg/cli/config"
	httpctrl "github.com/vistoria-lab/vistoria/pkg/controller/http"
	"github.com/vistoria-lab/vistoria/pkg/usecase"
	"github.com/vistoria-lab/vistoria/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var numberPrefix string
	var repoCfg config.Repository
	var sentryCfg config.Sentry
	var policyCfg config.Policy

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("VISTORIA_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "number-prefix",
			Usage:       "Prefix used for display numbers",
			Value:       "ASM",
			Sources:     cli.EnvVars("VISTORIA_NUMBER_PREFIX"),
			Destination: &numberPrefix,
		},
	}

	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			sentryCloser, err := sentryCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure sentry")
			}
			defer sentryCloser()
			if sentryCfg.Enabled() {
				logging.Default().Info("Sentry error reporting enabled")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			policy, err := policyCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load visibility policy")
			}

			uc := usecase.New(repo,
				usecase.WithVisibilityPolicy(policy),
				usecase.WithNumberPrefix(numberPrefix),
			)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server",
					"addr", addr,
					"repository", &repoCfg,
					"policy", &policyCfg,
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				logging.Default().Info("Server stopped")
			}

			return nil
		},
	}
}
