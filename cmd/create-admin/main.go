package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/unicesmag/labcontrol/internal/models"
	"github.com/unicesmag/labcontrol/internal/repository"
	"github.com/unicesmag/labcontrol/internal/service"
	"github.com/unicesmag/labcontrol/pkg/config"
	"github.com/unicesmag/labcontrol/pkg/database"
	"github.com/unicesmag/labcontrol/pkg/logger"
)

// create-admin seeds an administrator account so the first login does not
// require lifting the session guard on /register.
func main() {
	var (
		username string
		password string
		timeout  time.Duration
	)

	flag.StringVar(&username, "username", "", "Administrator username")
	flag.StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "Administrator password (defaults to $ADMIN_PASSWORD)")
	flag.DurationVar(&timeout, "timeout", 15*time.Second, "Database timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	users := service.NewUserService(repository.NewUserRepository(db), logr)
	user, err := users.Register(ctx, models.RegisterRequest{
		Username:     username,
		Password:     password,
		Confirmation: password,
	})
	if err != nil {
		switch service.ReasonOf(err) {
		case models.ReasonEmptyUsername:
			log.Fatal("-username is required")
		case models.ReasonEmptyPassword:
			log.Fatal("-password or ADMIN_PASSWORD is required")
		case models.ReasonPasswordTooLong:
			log.Fatal("password must not exceed 72 bytes")
		case models.ReasonUsernameTaken:
			log.Fatalf("user %q already exists", username)
		}
		log.Fatalf("failed to create user: %v", err)
	}

	fmt.Printf("created user %s (%s)\n", user.Username, user.ID)
}
