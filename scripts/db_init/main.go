package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	dbfs "github.com/mcastilho/clientdesk/db"
	"github.com/mcastilho/clientdesk/internal/config"
	"github.com/mcastilho/clientdesk/internal/db"
	"github.com/mcastilho/clientdesk/internal/repository/sqlite"
	"github.com/mcastilho/clientdesk/pkg/models"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	// seed the initial admin account unless one already exists
	email := os.Getenv("CLIENTDESK_ADMIN_EMAIL")
	password := os.Getenv("CLIENTDESK_ADMIN_PASSWORD")
	if email != "" && password != "" {
		repo := sqlite.New(database, nil)
		existing, err := repo.GetUserByEmail(ctx, email)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Admin lookup error: %v\n", err)
			os.Exit(1)
		}
		if existing == nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Password hash error: %v\n", err)
				os.Exit(1)
			}
			admin := models.User{
				Email:        email,
				PasswordHash: string(hash),
				Name:         "Administrator",
				Role:         models.RoleAdmin,
			}
			if _, err := repo.CreateUser(ctx, &admin); err != nil {
				fmt.Fprintf(os.Stderr, "Admin seed error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Seeded admin account %s.\n", email)
		}
	}

	fmt.Println("Database initialized successfully.")
}
