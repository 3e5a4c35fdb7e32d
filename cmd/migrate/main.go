package main

import (
	"log"
	"os"

	"ai-lending-be/internal/model"
	"ai-lending-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Starting Authoritative GORM Migration...")

	// 3. Pre-Migration: Extensions (Things GORM AutoMigrate doesn't do)
	color.Yellow("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models (The Core Task)
	color.Yellow("Step 2: Running AutoMigrate for 6 Tables...")

	models := []interface{}{
		&model.ConversationThread{},
		&model.Message{},
		&model.Loan{},
		&model.Transaction{},
		&model.CustomerProfile{},
		&model.Notification{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: Constraints AutoMigrate cannot express
	color.Yellow("Step 3: Creating Partial Indexes...")

	postMigrationSQL := []string{
		// At most one active conversation thread per user. Concurrent first
		// messages race to create one; the loser gets a duplicate-key error
		// and re-reads the winner.
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_threads_user_active
		 ON conversation_threads (user_id) WHERE status = 'active';`,

		// Ledger reads are always per loan in creation order.
		`CREATE INDEX IF NOT EXISTS ix_transactions_loan_created
		 ON transactions (loan_id, created_at);`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	color.Green("✅ Success: Database migration completed successfully via GORM.")
}
