package main // Entry point of the ticketing API

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/log"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/router"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

func main() {
	cfg := config.Load()
	log.Init(cfg.LogLevel, cfg.Env)
	if cfg.JWTSecret == "" {
		logrus.Fatal("missing required env var: JWT_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logrus.WithError(err).Fatal("could not migrate schema")
	}

	publisher := queue.NewPublisher(cfg.RabbitMQ)
	defer publisher.Close()

	store := repository.NewStore(db)
	tickets := service.NewTicketService(store, publisher).WithLocation(cfg.Location)
	e := router.New(router.Handlers{
		Health:   handler.Health(db),
		Tickets:  handler.NewTicketHandler(tickets, repository.NewUserRepo(db)),
		Movies:   handler.NewMovieHandler(service.NewMovieService(store)),
		Sessions: handler.NewSessionHandler(service.NewSessionService(store)),
		Users:    handler.NewUserHandler(service.NewWatchHistoryService(store)),
	}, router.Options{JWTSecret: cfg.JWTSecret, RequestTimeout: cfg.RequestTimeout})

	addr := ":" + cfg.Port
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "timezone": cfg.Location.String()}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logrus.Info("shutting down")
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
