package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/baseball-scorekeeper/internal/config"
	"github.com/park285/baseball-scorekeeper/internal/console"
	"github.com/park285/baseball-scorekeeper/internal/journal"
	"github.com/park285/baseball-scorekeeper/internal/livews"
	"github.com/park285/baseball-scorekeeper/internal/msgcat"
	"github.com/park285/baseball-scorekeeper/internal/obslog"
	"github.com/park285/baseball-scorekeeper/internal/outbox"
	"github.com/park285/baseball-scorekeeper/internal/scoreboard"
	"github.com/park285/baseball-scorekeeper/internal/session"
	"github.com/park285/baseball-scorekeeper/internal/statusapi"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cat, err := msgcat.New(cfg.MsgOverrideDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = outbox.NewID()
	}

	// Outbox: Redis가 있으면 재시작해도 미확인 명령이 남는다
	var box outbox.Store = outbox.NewMemoryStore()
	var redisBox *outbox.RedisStore
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisBox, err = outbox.NewRedisStoreFromURL(ctx, cfg.RedisURL, sessionID)
		cancel()
		if err != nil {
			log.Fatalf("outbox init error: %v", err)
		}
		box = redisBox
	}

	var sinks []journal.Sink
	if cfg.JournalFile != "" {
		fs, err := journal.NewFileSink(cfg.JournalFile)
		if err != nil {
			log.Fatalf("journal file error: %v", err)
		}
		sinks = append(sinks, fs)
	}
	if cfg.DatabaseURL != "" {
		ps, err := journal.NewPostgresSink(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("journal db error: %v", err)
		}
		sinks = append(sinks, ps)
	}
	jr := journal.Multi(sinks...)

	ws := livews.NewWebSocket(cfg.WSURL, cfg.MaxReconnect, cfg.ReconnectDelay,
		livews.WithLogger(logger.Named("ws")),
		livews.WithPingInterval(cfg.PingInterval),
		livews.WithReadLimit(cfg.ReadLimit),
		livews.WithHeaderProvider(func() map[string]string {
			return map[string]string{"X-Session-Id": sessionID}
		}),
	)

	sess := session.New(ws, session.Options{
		SessionID:     sessionID,
		Slots:         cfg.LineupSlots,
		AwayName:      cfg.AwayName,
		HomeName:      cfg.HomeName,
		Outbox:        box,
		Journal:       jr,
		Catalog:       cat,
		Logger:        logger.Named("session"),
		ResendPending: cfg.ResendPending,
	})

	panel := console.NewPanel(sess, console.NewFormatter(cat), os.Stdout)
	panel.Attach()

	var status *statusapi.Server
	if cfg.StatusAddr != "" {
		status = statusapi.NewServer(statusapi.NewHandler(sess, scoreboard.NewRenderer(), logger.Named("status")), logger.Named("status"))
		go func() {
			if err := status.ListenAndServe(cfg.StatusAddr); err != nil {
				logger.Error("status_api_stopped", zap.Error(err))
			}
		}()
	}

	// 접속 실패해도 패널은 띄운다. 재연결은 transport가 맡는다
	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		logger.Warn("ws_initial_connect_failed", zap.Error(err))
	}
	cancel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- panel.Run(ctx, os.Stdin) }()

	select {
	case <-ctx.Done():
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("panel_stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	panel.Detach()
	sess.Close()
	_ = ws.Close(shutdownCtx)
	if status != nil {
		_ = status.Shutdown(shutdownCtx)
	}
	if err := jr.Close(); err != nil {
		logger.Warn("journal_close_failed", zap.Error(err))
	}
	if redisBox != nil {
		_ = redisBox.Close()
	}
}
