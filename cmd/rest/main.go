package main

import (
	"context"
	"log"

	"ai-lending-be/internal/bootstrap"
	"ai-lending-be/internal/config"
	"ai-lending-be/internal/server"
	"ai-lending-be/internal/tracer"
	"ai-lending-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Ledger Audit Worker...")
		if err := container.LedgerAuditService.Consume(context.Background()); err != nil {
			log.Printf("Background Ledger Audit Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
