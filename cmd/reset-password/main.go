package main

import (
	"context"
	"flag"
	"log"

	"go-gearstore/internal/config"
	"go-gearstore/internal/repository"
	"go-gearstore/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to read configuration: %v", err)
	}

	email := flag.String("email", cfg.Admin.Email, "account to reset")
	newPassword := flag.String("password", cfg.Admin.Password, "new password")
	flag.Parse()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	// 3. Find account
	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("❌ User %s not found in database: %v", *email, err)
	}

	// 4. Hash new password
	if err := user.SetPassword(*newPassword); err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	// 5. Update, and drop the live session so the old token stops working
	if err := users.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		log.Fatalf("❌ Failed to update password in DB: %v", err)
	}
	if err := users.UpdateTokenVersion(ctx, user.ID, ""); err != nil {
		log.Fatalf("❌ Failed to revoke session: %v", err)
	}

	log.Printf("✅ Success! Password for %s has been reset", *email)
}
