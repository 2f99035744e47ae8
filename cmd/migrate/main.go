// Command migrate manages the grant database schema.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/schoolgrants/backend/internal/infrastructure/config"
	"github.com/schoolgrants/backend/internal/infrastructure/logger"
	"github.com/schoolgrants/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

const usage = `School grants database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                Apply all pending migrations
  down              Roll back all migrations
  step <n>          Apply n migrations (negative rolls back)
  goto <version>    Migrate to a specific version
  version           Show the applied version
  force <version>   Set the version without migrating (clears a dirty state)
  create <name>     Create the next numbered up/down pair
  list              List available migrations

Flags:
  -path string        Migrations directory (default: ./migrations)
  -log-level string   debug, info, warn or error (default: info)

Database settings come from config.toml and SGB_DATABASE_* variables.`

func main() {
	var migrationsPath, logLevel string
	flag.StringVar(&migrationsPath, "path", "migrations", "Path to migrations directory")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	path, err := filepath.Abs(migrationsPath)
	if err != nil {
		log.Fatal("Failed to resolve migrations path", zap.Error(err))
	}
	if err := run(log, path, args); err != nil {
		log.Fatal("Migration command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func run(log *zap.Logger, path string, args []string) error {
	command := args[0]
	argAt := func(i int) (string, error) {
		if len(args) <= i {
			return "", fmt.Errorf("%s requires an argument", command)
		}
		return args[i], nil
	}

	switch command {
	case "create":
		name, err := argAt(1)
		if err != nil {
			return err
		}
		m, err := migration.CreateMigration(path, name)
		if err != nil {
			return err
		}
		log.Info("Migration created", zap.Uint("version", m.Version), zap.String("up", m.UpPath), zap.String("down", m.DownPath))
		return nil
	case "list":
		ms, err := migration.ListMigrations(path)
		if err != nil {
			return err
		}
		for _, m := range ms {
			fmt.Printf("  %06d  %s\n", m.Version, m.Name)
		}
		return nil
	}

	if !slices.Contains([]string{"up", "down", "step", "goto", "version", "force"}, command) {
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	m, err := migration.New(db, path, log)
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		s, err := argAt(1)
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid step count %q", s)
		}
		return m.Steps(n)
	case "goto":
		s, err := argAt(1)
		if err != nil {
			return err
		}
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", s)
		}
		return m.GoTo(uint(v))
	case "force":
		s, err := argAt(1)
		if err != nil {
			return err
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid version %q", s)
		}
		return m.Force(v)
	default:
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}
}
