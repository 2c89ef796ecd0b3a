// Package cloudsql resolves the activity journal's PostgreSQL DSN for both
// local development and Cloud SQL on Cloud Run.
package cloudsql

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/STRATINT/zonewatch/internal/config"
)

// ErrNotConfigured means no database was configured; the journal stays off.
var ErrNotConfigured = errors.New("no database configured")

// BuildDatabaseURL returns the DSN for cfg.
//
// A non-empty URL wins. Otherwise InstanceConnectionName selects the Unix
// socket Cloud Run mounts at /cloudsql/<instance>; User and Name are then
// required and an empty Password means IAM authentication.
func BuildDatabaseURL(cfg config.DatabaseConfig) (string, error) {
	if cfg.URL != "" {
		return cfg.URL, nil
	}
	if cfg.InstanceConnectionName == "" {
		return "", ErrNotConfigured
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
	}

	socketPath := socketPath(cfg.InstanceConnectionName)
	if cfg.Password != "" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
			socketPath, cfg.User, cfg.Password, cfg.Name), nil
	}
	return fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable",
		socketPath, cfg.User, cfg.Name), nil
}

// GetConnectionConfig describes cfg for logging, without secrets.
func GetConnectionConfig(cfg config.DatabaseConfig) map[string]string {
	switch {
	case cfg.URL != "":
		return map[string]string{
			"connection_type": "direct",
			"database_url":    redactPassword(cfg.URL),
		}
	case cfg.InstanceConnectionName != "":
		return map[string]string{
			"connection_type": "cloud_sql",
			"instance":        cfg.InstanceConnectionName,
			"user":            cfg.User,
			"database":        cfg.Name,
			"socket_path":     socketPath(cfg.InstanceConnectionName),
		}
	default:
		return map[string]string{"connection_type": "none"}
	}
}

func socketPath(instance string) string {
	return "/cloudsql/" + instance
}

func redactPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || u.Scheme == "" {
		return connStr
	}
	return u.Redacted()
}
