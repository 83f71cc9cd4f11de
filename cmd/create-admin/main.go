package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/aguasol/aguasol-backend/internal/admins"
	"github.com/aguasol/aguasol-backend/internal/auth"
	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/db"
	"github.com/aguasol/aguasol-backend/pkg/logger"
)

func main() {
	name := flag.String("name", "", "operator display name")
	email := flag.String("email", "", "operator login email")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "create-admin"})
	ctx := context.Background()

	_ = godotenv.Load()

	password := os.Getenv("AGUASOL_ADMIN_PASSWORD")
	if *name == "" || *email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "usage: create-admin -name NAME -email EMAIL (password in AGUASOL_ADMIN_PASSWORD)")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	svc, err := auth.NewAdminRegisterService(admins.NewRepository(dbClient.DB()), cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to create admin register service", err)
		os.Exit(1)
	}

	admin, err := svc.Register(ctx, auth.AdminRegisterRequest{Name: *name, Email: *email, Password: password})
	if err != nil {
		logg.Error(logg.WithField(ctx, "email", *email), "failed to create admin", err)
		os.Exit(1)
	}
	fmt.Printf("created admin %s (%s)\n", admin.Email, admin.ID)
}
