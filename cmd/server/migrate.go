package main

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/database"
	"github.com/iliyamo/account-service/internal/repository"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the configured store",
		Long: `Apply the embedded MySQL schema, or create the MongoDB indexes,
depending on DB_DRIVER.  Both are idempotent.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.DBDriver == config.DriverMySQL {
		db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to mysql").Wrap(err)
		}
		defer func() { _ = db.Close() }()

		cmd.Println("Applying schema...")
		if err := database.Migrate(ctx, db); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "apply schema").Wrap(err)
		}
		cmd.Printf("Applied %d statements\n", len(database.Statements()))
		return nil
	}

	client, db, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to mongo").Wrap(err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	cmd.Println("Creating indexes...")
	if err := ensureMongoIndexes(ctx, cfg, db); err != nil {
		return err
	}
	cmd.Println("Indexes are up to date")
	return nil
}

func ensureMongoIndexes(ctx context.Context, cfg config.Config, db *mongo.Database) error {
	if err := repository.EnsureAccountIndexes(ctx, db); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "account indexes").With("db", cfg.MongoDB).Wrap(err)
	}
	if err := repository.EnsureAreaIndexes(ctx, db); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "area indexes").With("db", cfg.MongoDB).Wrap(err)
	}
	return nil
}
