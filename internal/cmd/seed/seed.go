// Package seed populates a development database with demo users and prints
// access tokens for them.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/domain"
	"github.com/taskdeck/taskdeck/internal/platform/config"
	"github.com/taskdeck/taskdeck/internal/platform/id"
	"github.com/taskdeck/taskdeck/internal/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	DBPath    string `env:"TASKDECK_DB_PATH"    envDefault:"taskdeck.db"`
	JWTSecret string `env:"TASKDECK_JWT_SECRET"`
	TokenTTL  time.Duration
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.TokenTTL = 24 * time.Hour

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "sqlite database path")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "token signing secret")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "lifetime of printed tokens")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var demoUsers = []domain.User{
	{Username: "alice", FullName: "Alice Admin", Email: "alice@taskdeck.local", Role: domain.RoleAdmin},
	{Username: "mara", FullName: "Mara Manager", Email: "mara@taskdeck.local", Role: domain.RoleManager},
	{Username: "bob", FullName: "Bob Member", Email: "bob@taskdeck.local", Role: domain.RoleMember},
	{Username: "carol", FullName: "Carol Member", Email: "carol@taskdeck.local", Role: domain.RoleMember},
}

// Run creates the demo users in the store and writes one line per user
// with a signed token. Existing databases are extended, not reset.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("TASKDECK_JWT_SECRET is required")
	}
	if out == nil {
		out = io.Discard
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	authenticator := auth.NewAuthenticator([]byte(cfg.JWTSecret), store, nil)

	for _, user := range demoUsers {
		user.ID, err = id.NewID()
		if err != nil {
			return fmt.Errorf("generate user id: %w", err)
		}
		user.CreatedAt = time.Now().UTC()
		if err := store.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("save user %s: %w", user.Username, err)
		}
		token, err := authenticator.Issue(user.ID, cfg.TokenTTL)
		if err != nil {
			return fmt.Errorf("issue token for %s: %w", user.Username, err)
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", user.Username, user.Role, user.ID, token)
	}
	return nil
}
