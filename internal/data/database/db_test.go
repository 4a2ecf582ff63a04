package database

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(Options{})
	if err == nil {
		t.Fatalf("expected error when no path supplied")
	}
}

func openTestDatabase(t *testing.T, opts Options) *gorm.DB {
	t.Helper()

	database, err := Open(opts)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := Close(database); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})
	return database
}

func TestOpenConfiguresSQLite(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		busyTimeout time.Duration
		wantMillis  int
	}{
		{name: "default busy timeout", wantMillis: 5000},
		{name: "custom busy timeout", busyTimeout: 1500 * time.Millisecond, wantMillis: 1500},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			database := openTestDatabase(t, Options{
				Path:        filepath.Join(t.TempDir(), "landai.db"),
				BusyTimeout: tc.busyTimeout,
			})

			var pragmas struct {
				ForeignKeys int
				JournalMode string
				BusyTimeout int
			}
			if err := database.Raw("PRAGMA foreign_keys;").Scan(&pragmas.ForeignKeys).Error; err != nil {
				t.Fatalf("reading foreign_keys failed: %v", err)
			}
			if err := database.Raw("PRAGMA journal_mode;").Scan(&pragmas.JournalMode).Error; err != nil {
				t.Fatalf("reading journal_mode failed: %v", err)
			}
			if err := database.Raw("PRAGMA busy_timeout;").Scan(&pragmas.BusyTimeout).Error; err != nil {
				t.Fatalf("reading busy_timeout failed: %v", err)
			}

			if pragmas.ForeignKeys != 1 {
				t.Fatalf("expected foreign keys on, got %d", pragmas.ForeignKeys)
			}
			if !strings.EqualFold(strings.TrimSpace(pragmas.JournalMode), "wal") {
				t.Fatalf("expected WAL journal, got %q", pragmas.JournalMode)
			}
			if pragmas.BusyTimeout != tc.wantMillis {
				t.Fatalf("expected busy timeout %d, got %d", tc.wantMillis, pragmas.BusyTimeout)
			}
		})
	}
}

func TestOpenAppliesConnectionLimits(t *testing.T) {
	t.Parallel()

	database := openTestDatabase(t, Options{
		Path:         filepath.Join(t.TempDir(), "limits.db"),
		MaxOpenConns: 7,
		MaxIdleConns: 3,
		ConnMaxIdle:  2 * time.Second,
		ConnMaxLife:  5 * time.Second,
	})

	sqlDB, err := SQLDB(database)
	if err != nil {
		t.Fatalf("SQLDB returned error: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 7 {
		t.Fatalf("expected 7 max open connections, got %d", got)
	}
}

func TestSQLDBWithNilDatabase(t *testing.T) {
	t.Parallel()

	_, err := SQLDB(nil)
	if err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestOpenCreatesParentDirectoryAndPings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "data", "landai.db")

	database := openTestDatabase(t, Options{Path: path, Logger: discardLogger()})

	if err := Ping(context.Background(), database); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
}

func TestPingAfterCloseFails(t *testing.T) {
	t.Parallel()

	database, err := Open(Options{Path: filepath.Join(t.TempDir(), "closed.db")})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	if err := Close(database); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if err := Ping(context.Background(), database); err == nil {
		t.Fatalf("expected ping on closed database to fail")
	}
}

func TestCloseNilDatabase(t *testing.T) {
	t.Parallel()

	if err := Close(nil); err != nil {
		t.Fatalf("expected nil error closing nil database, got %v", err)
	}
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
