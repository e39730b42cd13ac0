package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"net/http"

	"facility-inspect/internal/config"
	"facility-inspect/internal/handler"
	"facility-inspect/internal/logger"
	"facility-inspect/internal/service"
	"facility-inspect/internal/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

//go:embed dist/*
var staticFS embed.FS

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg := config.Load(*configFile)
	closeLog := logger.Init(cfg.Log)
	defer closeLog()

	var db *gorm.DB
	if cfg.Database.Enabled() {
		var err error
		db, err = cfg.OpenGormDB()
		if err != nil {
			logger.Warn("db connect failed, using file storage", "driver", cfg.Database.Driver, "err", err)
			db = nil
		}
	} else {
		logger.Warn("database not configured, using file storage")
	}

	inspections := service.NewInspectionService(db, cfg.ItemPolicy)
	if inspections.Available() {
		if err := inspections.Migrate(context.Background()); err != nil {
			logger.Warn("migrate failed", "err", err)
		}
	}

	ai := service.NewAIService(cfg.AI)
	if !ai.Enabled() {
		logger.Warn("GEMINI_API_KEY not set, AI summaries disabled")
	}
	files := service.NewFileStore(cfg.Storage.Dir)
	records := service.NewRecordService(inspections, files, ai, service.NewNotifier(cfg.Notify.WebhookURL), cfg.AI.CaptionPhotos)

	sessions := session.NewStore(cfg.Session.IdleTTL())
	defer sessions.Close()

	distFS, _ := fs.Sub(staticFS, "dist")
	gin.SetMode(gin.ReleaseMode)
	r := handler.NewRouter(handler.Deps{
		Users:       service.NewUserService(db),
		Inspections: inspections,
		Records:     records,
		Files:       files,
		Sessions:    sessions,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL:    cfg.Auth.TokenTTL(),
		Static:      http.FS(distFS),
	})

	logger.Info("server starting", "addr", cfg.Addr(), "database", inspections.Available(), "ai", ai.Enabled())
	if err := r.Run(cfg.Addr()); err != nil {
		logger.Error("server failed", "err", err)
	}
}
