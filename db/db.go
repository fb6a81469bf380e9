// api/db/db.go
package db

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/gatekeeper/api/config"
	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
)

var Neo4jDriver neo4j.Driver

func InitNeo4j(cfg config.Neo4jConfiguration) error {
	var err error
	logger.Info("Connecting to Neo4j at URI", zap.String("uri", cfg.URI))
	Neo4jDriver, err = neo4j.NewDriver(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionLifetime = 30 * time.Minute
			c.MaxConnectionPoolSize = 50
			c.ConnectionAcquisitionTimeout = 5 * time.Second
			c.SocketConnectTimeout = 5 * time.Second
			c.Log = neo4j.ConsoleLogger(neo4j.ERROR)
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	if err := Neo4jDriver.VerifyConnectivity(); err != nil {
		return fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	logger.Info("Successfully connected to Neo4j")
	return nil
}

func CloseNeo4j() error {
	if Neo4jDriver == nil {
		return nil
	}
	if err := Neo4jDriver.Close(); err != nil {
		logger.Error("Error closing Neo4j connection", zap.Error(err))
		return err
	}
	logger.Info("Neo4j connection closed successfully")
	return nil
}

// CloseAll releases every backend that was opened and reports all failures
// together.
func CloseAll() error {
	return multierr.Combine(
		CloseSQL(),
		CloseNeo4j(),
		CloseRedis(),
	)
}
