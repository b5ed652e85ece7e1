package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/metarho/internal/config"
	"github.com/metarho/internal/db"
	"github.com/metarho/internal/router"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	if err := db.EnsureUser(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("failed to ensure admin user: %v", err)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// 设置并运行 Gin 服务器
	r := router.Setup(db.DB, cfg.SessionSecret, logger)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
