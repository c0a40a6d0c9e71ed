// Package server parses server command configuration and composes the
// engine behind its HTTP and WebSocket transports.
package server

import (
	"flag"

	"github.com/taskdeck/taskdeck/internal/platform/config"
)

// Config holds server command configuration.
type Config struct {
	HTTPAddr  string `env:"TASKDECK_HTTP_ADDR"  envDefault:":8080"`
	DBPath    string `env:"TASKDECK_DB_PATH"    envDefault:"taskdeck.db"`
	JWTSecret string `env:"TASKDECK_JWT_SECRET"`
}

// ParseConfig parses environment and flags into a Config. Flags win over
// environment values.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "sqlite database path")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "token signing secret")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
