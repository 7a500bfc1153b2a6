package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"chatbridge/config"
	"chatbridge/internal/repository"
	"chatbridge/internal/services"
	"chatbridge/pkg/database"
	chatbridge_errors "chatbridge/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

const usage = `
Chatbridge - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Create collections indexes
  status      Show connection status and document counts
  seed        Register the initial admin user
  reset       Drop all collections and recreate indexes (DANGEROUS)

Flags:
  -admin-name string   Admin display name for seeding (default "System Admin")
  -admin-email string  Admin email for seeding (default "admin@chatbridge.local")
  -admin-pass string   Admin password for seeding (default "Admin@123!")

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed -admin-email ops@example.com
  go run cmd/migrate/main.go reset
`

func main() {
	adminName := flag.String("admin-name", "System Admin", "Admin display name for seeding")
	adminEmail := flag.String("admin-email", "admin@chatbridge.local", "Admin email for seeding")
	adminPass := flag.String("admin-pass", "Admin@123!", "Admin password for seeding")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())

	switch command {
	case "up":
		err = runUp(ctx, db.DB)
	case "status":
		err = showStatus(ctx, db)
	case "seed":
		err = runSeed(ctx, db.DB, cfg.JWTSecret, services.RegisterInput{
			Name:     *adminName,
			Email:    *adminEmail,
			Password: *adminPass,
		})
	case "reset":
		err = runReset(ctx, db.DB)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("%s failed: %v", command, err)
	}
}

func runUp(ctx context.Context, db *mongo.Database) error {
	log.Println("Creating indexes...")
	if err := repository.InitSchema(ctx, db); err != nil {
		return err
	}
	log.Println("Indexes are up to date")
	return nil
}

func showStatus(ctx context.Context, db *database.Mongo) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	log.Println("Database connection: OK")

	counts, err := repository.CollectionCounts(ctx, db.DB)
	if err != nil {
		return err
	}
	for _, name := range repository.Collections {
		log.Printf("Collection %-16s %d documents", name, counts[name])
	}
	return nil
}

func runSeed(ctx context.Context, db *mongo.Database, jwtSecret string, admin services.RegisterInput) error {
	if err := repository.InitSchema(ctx, db); err != nil {
		return err
	}

	auth := services.NewAuthService(repository.NewUserRepository(db), jwtSecret)
	res, err := auth.Register(ctx, admin)
	if errors.Is(err, chatbridge_errors.ErrAlreadyExists) {
		log.Printf("Admin user %s already exists, nothing to do", admin.Email)
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("Admin user created: %s (ID: %s)", admin.Email, res.UserID)
	return nil
}

func runReset(ctx context.Context, db *mongo.Database) error {
	log.Printf("WARNING: dropping collections %v", repository.Collections)
	if err := repository.DropCollections(ctx, db); err != nil {
		return err
	}
	return runUp(ctx, db)
}
