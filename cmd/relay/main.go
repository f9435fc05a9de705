package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"chatseal/internal/relayserver"
)

func main() {
	log := logrus.New()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("could not read .env")
	}
	if lvl, err := logrus.ParseLevel(getenv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.WithError(err).Fatal("relay stopped")
	}
}

func run(ctx context.Context, log *logrus.Logger) error {
	store, closeStore, err := openStore(ctx, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var notifier relayserver.Notifier
	if addr := os.Getenv("REDIS_URL"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		notifier = relayserver.NewRedisNotifier(rdb, log)
		log.WithField("addr", addr).Info("relay: redis notifier")
	}

	srv := &http.Server{
		Addr:              ":" + getenv("PORT", "8080"),
		Handler:           relayserver.NewServer(store, notifier, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end when the process is asked to stop.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("relay listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdown)
}

func openStore(ctx context.Context, log *logrus.Logger) (relayserver.Store, func(), error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		log.Info("relay: in-memory store")
		return relayserver.NewMemoryStore(), func() {}, nil
	}
	pg, err := relayserver.OpenPostgres(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(); err != nil {
		pg.Close()
		return nil, nil, err
	}
	log.Info("relay: postgres store")
	return pg, func() { pg.Close() }, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
