package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/micropy-dev/micropy"
	"github.com/micropy-dev/micropy/internal/config"
	"github.com/micropy-dev/micropy/pkg/server"
	"github.com/micropy-dev/micropy/pkg/static"
)

func serveCmd() *cobra.Command {
	var (
		dir  string
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a project directory",
		Long: `Serve starts the dispatch engine for a project directory. Pages are
resolved through the auto-template fallback: GET / renders
templates/index.html, GET /about renders templates/about.html, and so
on. Files under the static directory are served at the static prefix.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Addr()
			}

			level := slog.LevelInfo
			if cfg.Debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			app := micropy.New(micropy.Config{
				SecretKey: cfg.Secret(),
				Session: micropy.SessionConfig{
					CookieName: cfg.Session.CookieName,
					Secure:     cfg.Session.Secure,
					SameSite:   cfg.SameSiteMode(),
					Permanent:  cfg.Session.Permanent,
					Lifetime:   time.Duration(cfg.Session.MaxAgeSeconds) * time.Second,
				},
				Static: micropy.StaticConfig{
					Reader: static.Dir(cfg.Paths.Static),
					Prefix: cfg.Paths.StaticPrefix,
				},
				Templates: micropy.TemplateConfig{Dir: cfg.Paths.Templates},
				Debug:     cfg.Debug,
				Logger:    logger,
			})

			// Every page resolves through the auto-template fallback.
			if err := app.Get("/", pageHandler); err != nil {
				return err
			}
			if err := app.Get("/{page}", pageHandler); err != nil {
				return err
			}

			logger.Info("serving", "name", cfg.Name, "addr", addr)
			if err := http.ListenAndServe(addr, app); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "project directory")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides micropy.json)")
	return cmd
}

// pageHandler returns nothing, so the dispatcher falls back to the
// template named after the request path.
func pageHandler(*server.Ctx) (any, error) {
	return nil, nil
}
