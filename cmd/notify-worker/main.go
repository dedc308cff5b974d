package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicore/clinic-booking/internal/config"
	"github.com/clinicore/clinic-booking/internal/db"
	"github.com/clinicore/clinic-booking/internal/notify"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("notify-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	svc := notify.NewService(notify.NewPgRepository(pgPool))

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	log.Printf("dispatching pending notifications every %s", cfg.WorkerInterval)

	for {
		select {
		case <-rootCtx.Done():
			log.Println("notify-worker shutting down")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(rootCtx, cfg.WorkerInterval)
			sent, err := svc.DispatchPending(runCtx)
			cancel()
			if err != nil {
				log.Printf("dispatch error: %v", err)
				continue
			}
			if sent > 0 {
				log.Printf("dispatched %d notifications", sent)
			}
		}
	}
}
