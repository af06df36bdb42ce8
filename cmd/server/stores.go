package main

import (
	"context"

	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/database"
	"github.com/iliyamo/account-service/internal/repository"
)

// stores bundles the repositories of the selected backend with the
// function that releases its connection.
type stores struct {
	accounts repository.AccountRepository
	areas    repository.AreaRepository
	close    func()
}

// openStores connects to the backend named by DB_DRIVER.  With mongo the
// account and area indexes are ensured before the repositories are used.
func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (stores, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return stores{}, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.DBDriver).Wrap(err)
		}
		log.Info("connected to mysql", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
		return stores{
			accounts: repository.NewSQLAccountRepo(db),
			areas:    repository.NewSQLAreaRepo(db),
			close:    func() { _ = db.Close() },
		}, nil
	default:
		client, db, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return stores{}, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.DBDriver).Wrap(err)
		}
		disconnect := func() { _ = client.Disconnect(context.Background()) }
		if err := ensureMongoIndexes(ctx, cfg, db); err != nil {
			disconnect()
			return stores{}, err
		}
		log.Info("connected to mongo", zap.String("db", cfg.MongoDB))
		return stores{
			accounts: repository.NewMongoAccountRepo(db),
			areas:    repository.NewMongoAreaRepo(db),
			close:    disconnect,
		}, nil
	}
}
