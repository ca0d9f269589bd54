// Command server runs the card game room server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TylerMG2/card-games/internal/cache"
	"github.com/TylerMG2/card-games/internal/config"
	"github.com/TylerMG2/card-games/internal/database"
	"github.com/TylerMG2/card-games/internal/room"
	"github.com/TylerMG2/card-games/internal/server"
)

const connectTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}
	log, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := room.Options{
		CodeLength: cfg.RoomCodeLength,
		Log:        log,
	}

	if cfg.RedisAddr != "" {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		rdb, err := cache.Connect(cctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			return err
		}
		defer rdb.Close()
		journal := cache.NewJournal(rdb, cache.Options{TTL: cfg.JournalTTL, MaxLen: cfg.JournalMaxLen}, log)
		defer journal.Close()
		opts.Journal = journal
		log.WithField("addr", cfg.RedisAddr).Info("event journal enabled")
	}

	if cfg.DatabaseURL != "" {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		store, err := database.Open(cctx, cfg.DatabaseURL)
		if err != nil {
			cancel()
			return err
		}
		defer store.Close()
		err = store.Migrate(cctx)
		cancel()
		if err != nil {
			return err
		}
		opts.Archiver = store
		log.Info("session archive enabled")
	}

	dir := room.NewDirectory(opts)
	defer dir.Wait()

	log.WithFields(logrus.Fields{
		"code_length":  cfg.RoomCodeLength,
		"name_timeout": cfg.NameTimeout,
	}).Info("starting server")
	return server.New(cfg, dir, log).Run(ctx)
}
