package main // Entry point of the confirmation mail worker

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/log"
	"github.com/iliyamo/cinema-ticketing/internal/notification"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

func main() {
	cfg := config.Load()
	log.Init(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to database")
	}
	defer db.Close()

	publisher := queue.NewPublisher(cfg.RabbitMQ)
	defer publisher.Close()

	var mailer notification.Mailer
	if cfg.Mail.SendGridAPIKey != "" {
		mailer = notification.NewSendGridMailer(cfg.Mail.SendGridAPIKey, cfg.Mail.SenderEmail, cfg.Mail.SenderName)
	} else {
		logrus.WithField("file", cfg.Mail.LogFile).Warn("SENDGRID_API_KEY not set; writing confirmations to file")
		mailer = notification.NewFileMailer(cfg.Mail.LogFile)
	}

	// The ledger is optional: without Redis duplicate deliveries may mail twice.
	var ledger notification.Ledger
	if config.RedisEnabled() {
		rdb, err := config.NewRedisClient(ctx)
		if err != nil {
			logrus.WithError(err).Warn("redis unavailable; running without notification ledger")
		} else {
			defer rdb.Close()
			ledger = notification.NewRedisLedger(rdb, notification.DefaultLedgerTTL)
		}
	}

	tickets := service.NewTicketService(repository.NewStore(db), publisher).WithLocation(cfg.Location)
	notifier := notification.New(tickets, notification.NewRenderer(cfg.BaseURL), mailer, publisher, ledger)

	consumer := queue.NewConsumer(cfg.RabbitMQ)
	notifier.Register(consumer)

	logrus.Info("notifier started")
	if err := consumer.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("consumer stopped")
	}
	logrus.Info("notifier stopped")
}
