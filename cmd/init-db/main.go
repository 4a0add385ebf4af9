package main

import (
	"context"
	"fmt"
	"log"

	"straintrack-data/internal/config"
	"straintrack-data/internal/database"
	"straintrack-data/internal/repository"
)

func main() {
	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	if err := repository.ApplySchema(context.Background(), db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	fmt.Printf("Schema applied to database %s\n", cfg.Database.Database)
}
