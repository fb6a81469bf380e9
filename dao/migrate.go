// api/dao/migrate.go
package dao

import (
	"context"
	"embed"
	"fmt"

	"github.com/oarkflow/squealx"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate creates the policy, tenant and audit tables for the given SQL
// dialect. It is safe to run on every start.
func Migrate(ctx context.Context, db *squealx.DB, driver string) error {
	script, err := migrations.ReadFile("migrations/" + driver + ".sql")
	if err != nil {
		return fmt.Errorf("no migrations for driver %q: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("SQL schema is up to date", zap.String("driver", driver))
	return nil
}
