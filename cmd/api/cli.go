package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/autoinvoice/autoinvoice/internal/config"
	"github.com/autoinvoice/autoinvoice/migrations"
)

const (
	exitOK      = 0
	exitUsage   = 2
	exitConfig  = 3
	exitMigrate = 4
)

// migrateTimeout bounds one migrate invocation, schema changes included.
const migrateTimeout = 5 * time.Minute

// migration is a parsed `migrate` invocation. Version is only used by up-to
// and down-to.
type migration struct {
	Action  string
	Version int64
}

var (
	migrateRunner           = realMigrateRunner
	osExit                  = os.Exit
	cliOut        io.Writer = os.Stdout
)

func handleCLICommand(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "migrate":
		osExit(runMigrate(args[1:]))
		return true
	case "help", "-h", "--help":
		printHelp(cliOut)
		osExit(exitOK)
		return true
	default:
		return false
	}
}

func parseMigration(args []string) (migration, error) {
	if len(args) == 0 {
		return migration{}, errors.New("missing migrate subcommand (up|up-to|down|down-to|status|version)")
	}
	m := migration{Action: args[0]}
	switch m.Action {
	case "up", "down", "status", "version":
		if len(args) > 1 {
			return migration{}, fmt.Errorf("migrate %s takes no arguments", m.Action)
		}
	case "up-to", "down-to":
		if len(args) != 2 {
			return migration{}, fmt.Errorf("migrate %s needs a target version", m.Action)
		}
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || v < 0 {
			return migration{}, fmt.Errorf("invalid target version %q", args[1])
		}
		m.Version = v
	default:
		return migration{}, fmt.Errorf("unknown migrate subcommand: %s", m.Action)
	}
	return m, nil
}

func runMigrate(args []string) int {
	m, err := parseMigration(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "config error: DATABASE_URL is empty")
		return exitConfig
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	if err := migrateRunner(ctx, m, cfg.DatabaseURL, migrationSource()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", m.Action, err)
		return exitMigrate
	}
	return exitOK
}

// migrationSource returns the migrations compiled into the binary, or the
// directory named by MIGRATIONS_DIR when iterating on new migrations.
func migrationSource() fs.FS {
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

func realMigrateRunner(ctx context.Context, m migration, databaseURL string, fsys fs.FS) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	switch m.Action {
	case "up":
		res, err := p.Up(ctx)
		reportResults(cliOut, res)
		return err
	case "up-to":
		res, err := p.UpTo(ctx, m.Version)
		reportResults(cliOut, res)
		return err
	case "down":
		res, err := p.Down(ctx)
		if res != nil {
			reportResults(cliOut, []*goose.MigrationResult{res})
		}
		return err
	case "down-to":
		res, err := p.DownTo(ctx, m.Version)
		reportResults(cliOut, res)
		return err
	case "status":
		st, err := p.Status(ctx)
		if err != nil {
			return err
		}
		reportStatus(cliOut, st)
		return nil
	case "version":
		v, err := p.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cliOut, "schema version %d\n", v)
		return nil
	default:
		return fmt.Errorf("unsupported migrate subcommand %q", m.Action)
	}
}

func reportResults(w io.Writer, results []*goose.MigrationResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no migrations to apply")
		return
	}
	for _, r := range results {
		state := "OK"
		if r.Error != nil {
			state = "FAILED"
		}
		fmt.Fprintf(w, "%-6s %-4s %s (%s)\n", state, r.Direction, sourceName(r.Source), r.Duration.Round(time.Millisecond))
	}
}

func reportStatus(w io.Writer, statuses []*goose.MigrationStatus) {
	for _, s := range statuses {
		applied := "pending"
		if s.State == goose.StateApplied {
			applied = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%-25s %s\n", applied, sourceName(s.Source))
	}
}

func sourceName(s *goose.Source) string {
	if s == nil {
		return "?"
	}
	return s.Path
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "autoinvoice API")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  autoinvoice                      Start API server")
	fmt.Fprintln(w, "  autoinvoice migrate up           Apply all pending migrations")
	fmt.Fprintln(w, "  autoinvoice migrate up-to N      Apply migrations up to version N")
	fmt.Fprintln(w, "  autoinvoice migrate down         Roll back the latest migration")
	fmt.Fprintln(w, "  autoinvoice migrate down-to N    Roll back to version N")
	fmt.Fprintln(w, "  autoinvoice migrate status       Show applied and pending migrations")
	fmt.Fprintln(w, "  autoinvoice migrate version      Print the current schema version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Migrations are embedded in the binary; set MIGRATIONS_DIR to use a directory instead.")
}
