// sitedesk serves the multi-tenant helpdesk access-control and
// ticket-assignment API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/sitedesk-io/sitedesk/internal/access"
	"github.com/sitedesk-io/sitedesk/internal/api"
	"github.com/sitedesk-io/sitedesk/internal/assignment"
	"github.com/sitedesk-io/sitedesk/internal/cache"
	"github.com/sitedesk-io/sitedesk/internal/config"
	"github.com/sitedesk-io/sitedesk/internal/database"
	"github.com/sitedesk-io/sitedesk/internal/logger"
	"github.com/sitedesk-io/sitedesk/internal/repository"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:          "sitedesk",
		Short:        "Multi-tenant helpdesk access-control and assignment service",
		SilenceUsage: true,
	}

	var cfgPath string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgPath)
		},
	}
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	root.AddCommand(serve, &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return err
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisCache, err := cache.New(cfg.Redis, cfg.Cache)
	if err != nil {
		return err
	}
	defer redisCache.Close()

	if cfgPath != "" {
		err := config.Watch(cfgPath, func(next *config.Config) {
			log.Info("config file changed; restart to apply", "path", cfgPath)
		})
		if err != nil {
			log.Warn("config watch unavailable", "error", err)
		}
	}

	users := repository.NewSQLUserRepository(db)
	sites := repository.NewSQLSiteRepository(db)
	roles := repository.NewSQLRoleRepository(db)
	tickets := repository.NewSQLTicketRepository(db)

	store := access.NewRoleStore(roles, redisCache, log)
	resolver := access.NewResolver(users, sites, tickets, roles, store, redisCache, log)
	admin := access.NewAdmin(resolver, sites, roles, cache.NewInvalidator(redisCache, log), log)
	engine := assignment.NewEngine(tickets, users, resolver,
		assignment.NewLogNotifier(log), assignment.NewLogCommentLogger(log), log)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.NewServer(resolver, admin, engine, log).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
