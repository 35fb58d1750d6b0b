package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"ablab/adapters/postgres"
	"ablab/internal/api"
	"ablab/internal/config"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Printf("[API] Loaded environment from .env")
	}

	appCfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] Configuration error: %v", err)
	}
	if err := appCfg.RequireDatabase(); err != nil {
		log.Fatalf("[API] %v", err)
	}

	db, err := sqlx.Connect("postgres", appCfg.Database.URL)
	if err != nil {
		log.Fatalf("[API] Database connection failed: %v", err)
	}
	defer db.Close()

	repo := postgres.NewAnalysisRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("[API] Schema setup failed: %v", err)
	}

	gin.SetMode(appCfg.Server.GinMode)
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := api.NewAnalysisHandler(repo)
	handler.Register(router.Group("/api/v1"))

	addr := ":" + appCfg.Server.Port
	log.Printf("[API] Listening on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("[API] Server error: %v", err)
	}
}
