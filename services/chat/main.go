package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/crmchat/internal/api"
	"github.com/crmchat/internal/channel"
	"github.com/crmchat/internal/config"
	"github.com/crmchat/internal/logger"
	"github.com/crmchat/internal/model"
	"github.com/crmchat/internal/realtime"
	"github.com/crmchat/internal/startup"
	"github.com/crmchat/internal/tui"
)

func main() {
	logger.SetPrefix("chat")
	channelID := flag.String("channel", "", "channel id to open")
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg := config.Load(*configPath)
	logger.SetLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		if err := logger.SetFile(cfg.LogFile); err != nil {
			fmt.Fprintf(os.Stderr, "log file: %v\n", err)
		}
	}
	if cfg.UserID == "" && cfg.SessionToken != "" {
		id, name, err := api.IdentityFromToken(cfg.SessionToken)
		if err != nil {
			logger.Errorf("session token: %v", err)
		}
		cfg.UserID = id
		if cfg.UserName == "" {
			cfg.UserName = name
		}
	}
	if *channelID == "" || cfg.UserID == "" {
		fmt.Fprintln(os.Stderr, "usage: chat -channel <id> (USER_ID and SESSION_TOKEN must be set)")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := startup.ConnectCache(ctx, cfg.RedisURL, 10*time.Second)
	defer cache.Close()

	client := api.New(api.Options{
		BaseURL:           cfg.APIBaseURL,
		Token:             cfg.SessionToken,
		Timeout:           cfg.HTTPTimeout,
		Cache:             cache,
		CacheTTL:          cfg.CacheTTL,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})

	viewer := model.Viewer{ID: cfg.UserID, Name: cfg.UserName}
	permCtx, permCancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
	perms, err := client.FetchPermissions(permCtx)
	permCancel()
	if err != nil {
		// Без прав показываем только собственные действия.
		logger.Errorf("permissions: %v", err)
	}
	viewer.Permissions = perms

	store := channel.New(client, *channelID, model.UserPublic{ID: cfg.UserID, Username: cfg.UserName}, cfg.PageSize)

	rt := realtime.New(cfg.RealtimeURL, cfg.SessionToken)
	go func() {
		if err := rt.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("realtime: %v", err)
		}
	}()

	m := tui.New(store, rt, client, viewer, tui.Options{
		NearTopPx:        cfg.NearTopThreshold,
		NearBottomPx:     cfg.NearBottomThreshold,
		TypingStopDelay:  cfg.TypingStopDelay,
		AttachmentsLimit: cfg.AttachmentsLimit,
		DownloadDir:      cfg.DownloadDir,
	})

	logger.Infof("opening channel %s as %s", *channelID, cfg.UserID)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		logger.Errorf("tui: %v", err)
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
		os.Exit(1)
	}
	logger.Info("chat stopped")
}
