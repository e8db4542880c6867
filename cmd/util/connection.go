package util

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/alexbrainman/odbc"

	"github.com/dmdump/dmdump/internal/logger"
)

// DefaultDriver is the ODBC driver name the DM8 client installs.
const DefaultDriver = "DM8 ODBC DRIVER"

// ConnectionConfig holds database connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// Driver overrides the ODBC driver name; empty selects DefaultDriver.
	Driver string
}

// Connect establishes a DM8 connection over ODBC and verifies it with a
// ping.
func Connect(config *ConnectionConfig) (*sql.DB, error) {
	log := logger.Get()

	log.Debug("Attempting database connection",
		"host", config.Host,
		"port", config.Port,
		"user", config.User,
		"driver", config.driver(),
	)

	conn, err := sql.Open("odbc", BuildDSN(config))
	if err != nil {
		log.Debug("Database connection failed", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		log.Debug("Database ping failed", "error", err)
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug("Database connection established successfully")
	return conn, nil
}

func (c *ConnectionConfig) driver() string {
	if c.Driver != "" {
		return c.Driver
	}
	return DefaultDriver
}

// BuildDSN constructs an ODBC connection string from connection
// parameters.
func BuildDSN(config *ConnectionConfig) string {
	parts := []string{
		fmt.Sprintf("Driver={%s}", config.driver()),
		fmt.Sprintf("SERVER=%s", config.Host),
		fmt.Sprintf("TCP_PORT=%d", config.Port),
		fmt.Sprintf("UID=%s", config.User),
		fmt.Sprintf("PWD=%s", config.Password),
	}
	return strings.Join(parts, ";")
}
