// api/db/sql.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/oarkflow/squealx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/dev-mohitbeniwal/gatekeeper/api/config"
	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
)

var (
	SQLDB     *squealx.DB
	sqlHandle *sql.DB
)

// OpenSQL opens a squealx handle for the sqlite or postgres driver.
func OpenSQL(driver, dsn string) (*squealx.DB, *sql.DB, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == config.StoreDriverSQLite {
		// in-memory databases exist per connection
		sqlDB.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	return squealx.NewDb(sqlDB, driver, "gatekeeper"), sqlDB, nil
}

func InitSQL(cfg config.StoreConfiguration) error {
	var err error
	SQLDB, sqlHandle, err = OpenSQL(cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	logger.Info("Successfully connected to SQL store", zap.String("driver", cfg.Driver))
	return nil
}

func CloseSQL() error {
	if sqlHandle == nil {
		return nil
	}
	if err := sqlHandle.Close(); err != nil {
		logger.Error("Error closing SQL connection", zap.Error(err))
		return err
	}
	return nil
}
