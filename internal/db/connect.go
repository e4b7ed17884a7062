// Package db opens GORM connections for the supported database backends.
package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported database types.
const (
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
	TypeSQLite   = "sqlite"
)

// Connect opens a database connection for the given type and DSN. SQLite is
// meant for local runs and tests; production deployments use postgres or
// mysql.
func Connect(dbType, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	switch dbType {
	case TypePostgres:
		return gorm.Open(postgres.Open(dsn), cfg)
	case TypeMySQL:
		return gorm.Open(mysql.Open(dsn), cfg)
	case TypeSQLite:
		return gorm.Open(sqlite.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported database type %q (postgres, mysql, sqlite)", dbType)
	}
}
