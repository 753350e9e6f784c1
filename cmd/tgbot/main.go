// Command tgbot posts new feedback to the operators' Telegram chat and
// answers /recent with the latest messages.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"NeoNest/internal/auth"
	"NeoNest/internal/repo"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "tgbot:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(ctx, log); err != nil {
		log.Fatal("tgbot stopped", zap.Error(err))
	}
}

func run(ctx context.Context, log *zap.Logger) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	token := os.Getenv("TOKEN_BOT")
	peerStr := os.Getenv("ADMIN_PEER_ID")
	dsn := os.Getenv("DATABASE_URL")
	if token == "" || peerStr == "" || dsn == "" {
		return errors.New("TOKEN_BOT, ADMIN_PEER_ID and DATABASE_URL are required")
	}
	adminID, err := strconv.ParseInt(peerStr, 10, 64)
	if err != nil {
		return fmt.Errorf("ADMIN_PEER_ID: %w", err)
	}

	db, err := auth.InitDB(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	n := &Notifier{
		Repo:     repo.NewPostgres(db),
		Bot:      NewBot(token),
		AdminID:  adminID,
		Interval: 30 * time.Second,
		Log:      log,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.Notify(ctx) })
	g.Go(func() error { return n.Listen(ctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
