package main

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoinvoice/autoinvoice/migrations"
)

type runnerCall struct {
	m    migration
	url  string
	fsys fs.FS
}

// stubRunner replaces migrateRunner for the duration of the test.
func stubRunner(t *testing.T, err error) *[]runnerCall {
	t.Helper()
	var calls []runnerCall
	orig := migrateRunner
	t.Cleanup(func() { migrateRunner = orig })
	migrateRunner = func(_ context.Context, m migration, url string, fsys fs.FS) error {
		calls = append(calls, runnerCall{m: m, url: url, fsys: fsys})
		return err
	}
	return &calls
}

func stubExit(t *testing.T) *[]int {
	t.Helper()
	var codes []int
	orig := osExit
	t.Cleanup(func() { osExit = orig })
	osExit = func(code int) { codes = append(codes, code) }
	return &codes
}

func TestParseMigration(t *testing.T) {
	ok := map[string]migration{
		"up":          {Action: "up"},
		"down":        {Action: "down"},
		"status":      {Action: "status"},
		"version":     {Action: "version"},
		"up-to 1":     {Action: "up-to", Version: 1},
		"down-to 0":   {Action: "down-to", Version: 0},
		"up-to 20240": {Action: "up-to", Version: 20240},
	}
	for in, want := range ok {
		got, err := parseMigration(strings.Fields(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "sideways", "up 3", "up-to", "up-to abc", "down-to -1", "status now"} {
		_, err := parseMigration(strings.Fields(in))
		assert.Error(t, err, in)
	}
}

func TestRunMigrate_UsesEmbeddedMigrationsFromAnyDirectory(t *testing.T) {
	calls := stubRunner(t, nil)
	t.Setenv("MIGRATIONS_DIR", "")
	t.Setenv("DATABASE_URL", "postgres://autoinvoice@db.internal:5432/autoinvoice")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.Equal(t, exitOK, runMigrate([]string{"up-to", "1"}))
	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, migration{Action: "up-to", Version: 1}, call.m)
	assert.Equal(t, "postgres://autoinvoice@db.internal:5432/autoinvoice", call.url)
	_, err = fs.Stat(call.fsys, "00001_init.sql")
	assert.NoError(t, err)
}

func TestRunMigrate_MigrationsDirOverride(t *testing.T) {
	calls := stubRunner(t, nil)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00002_draft.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o600))
	t.Setenv("MIGRATIONS_DIR", dir)

	require.Equal(t, exitOK, runMigrate([]string{"status"}))
	require.Len(t, *calls, 1)
	_, err := fs.Stat((*calls)[0].fsys, "00002_draft.sql")
	assert.NoError(t, err)
	_, err = fs.Stat((*calls)[0].fsys, "00001_init.sql")
	assert.Error(t, err)
}

func TestRunMigrate_ExitCodes(t *testing.T) {
	calls := stubRunner(t, nil)
	assert.Equal(t, exitUsage, runMigrate(nil))
	assert.Equal(t, exitUsage, runMigrate([]string{"foo"}))
	assert.Equal(t, exitUsage, runMigrate([]string{"down-to", "x"}))
	assert.Empty(t, *calls)

	stubRunner(t, errors.New("boom"))
	assert.Equal(t, exitMigrate, runMigrate([]string{"up"}))
}

func TestEmbeddedMigrations_AreReversible(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	for _, name := range names {
		body, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}
	body, err := fs.ReadFile(migrations.FS, "00001_init.sql")
	require.NoError(t, err)
	for _, table := range []string{"customers", "invoices", "invoice_items", "mail_accounts", "app_settings"} {
		assert.Contains(t, string(body), "CREATE TABLE "+table+" (", table)
	}
}

func TestReportResultsAndStatus(t *testing.T) {
	src := &goose.Source{Type: goose.TypeSQL, Path: "00001_init.sql", Version: 1}

	var out bytes.Buffer
	reportResults(&out, nil)
	assert.Equal(t, "no migrations to apply\n", out.String())

	out.Reset()
	reportResults(&out, []*goose.MigrationResult{
		{Source: src, Direction: "up", Duration: 42 * time.Millisecond},
		{Source: &goose.Source{Path: "00002_bad.sql"}, Direction: "up", Error: errors.New("syntax")},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "OK"), lines[0])
	assert.Contains(t, lines[0], "00001_init.sql (42ms)")
	assert.True(t, strings.HasPrefix(lines[1], "FAILED"), lines[1])

	out.Reset()
	applied := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	reportStatus(&out, []*goose.MigrationStatus{
		{Source: src, State: goose.StateApplied, AppliedAt: applied},
		{Source: &goose.Source{Path: "00002_next.sql", Version: 2}, State: goose.StatePending},
	})
	assert.Contains(t, out.String(), "2024-03-01T10:00:00Z")
	assert.Contains(t, out.String(), "pending")
	assert.Contains(t, out.String(), "00002_next.sql")
}

func TestHandleCLICommand(t *testing.T) {
	codes := stubExit(t)
	calls := stubRunner(t, nil)

	assert.False(t, handleCLICommand(nil))
	assert.False(t, handleCLICommand([]string{"server"}))
	assert.Empty(t, *codes)

	assert.True(t, handleCLICommand([]string{"migrate", "version"}))
	require.Len(t, *calls, 1)
	assert.Equal(t, "version", (*calls)[0].m.Action)

	var out bytes.Buffer
	orig := cliOut
	cliOut = &out
	t.Cleanup(func() { cliOut = orig })
	assert.True(t, handleCLICommand([]string{"help"}))
	assert.Contains(t, out.String(), "migrate down-to N")
	assert.Equal(t, []int{exitOK, exitOK}, *codes)
}

func TestRealMigrateRunner_Postgres(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("skipping integration test: DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var out bytes.Buffer
	orig := cliOut
	cliOut = &out
	t.Cleanup(func() { cliOut = orig })

	require.NoError(t, realMigrateRunner(ctx, migration{Action: "up"}, url, migrations.FS))
	out.Reset()
	require.NoError(t, realMigrateRunner(ctx, migration{Action: "status"}, url, migrations.FS))
	assert.Contains(t, out.String(), "00001_init.sql")
	assert.NotContains(t, out.String(), "pending")
}
