package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nurlybekov/circulation-service/config"
	"github.com/nurlybekov/circulation-service/internal/handler"
	"github.com/nurlybekov/circulation-service/internal/repository"
	"github.com/nurlybekov/circulation-service/internal/server"
	"github.com/nurlybekov/circulation-service/internal/service/catalog"
	"github.com/nurlybekov/circulation-service/internal/service/lending"
	"github.com/nurlybekov/circulation-service/internal/service/payment"
	"github.com/nurlybekov/circulation-service/internal/service/report"
	"github.com/nurlybekov/circulation-service/migrations"
	"github.com/nurlybekov/circulation-service/pkg/kafka"
	"github.com/nurlybekov/circulation-service/pkg/logger"
	"github.com/nurlybekov/circulation-service/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "circulation")

	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}

	catalogRepo, err := repository.NewCatalogRepository(db, log)
	if err != nil {
		log.Fatal("catalog repo", zap.Error(err))
	}
	loanRepo, err := repository.NewLoanRepository(db, log)
	if err != nil {
		log.Fatal("loan repo", zap.Error(err))
	}

	catalogSvc := catalog.NewService(catalogRepo, log)
	lendingSvc := lending.NewService(catalogRepo, loanRepo, log)
	gateway := payment.NewHTTPGateway(cfg.Payment, log)
	paymentSvc := payment.NewService(lendingSvc, catalogRepo, gateway, log)
	reportSvc := report.NewService(catalogRepo, loanRepo, lendingSvc, log)

	var queue handler.Enqueuer
	if len(cfg.Kafka.Addrs) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		defer producer.Close()
		queue = handler.NewEnqueuer(producer)
	}

	h := handler.New(catalogSvc, lendingSvc, paymentSvc, reportSvc, queue, log)

	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.Error("srv.Stop", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
