package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sir_venger/resumable_lite/internal/config"
	meta "github.com/sir_venger/resumable_lite/internal/repo"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	dsn := strings.TrimSpace(cfg.MetaDSN)
	if !meta.IsPostgres(dsn) {
		log.Printf("meta store %q needs no migrations", dsn)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := meta.ApplyMigrations(ctx, dsn); err != nil {
		log.Fatal(err)
	}

	log.Println("migrations applied")
}
