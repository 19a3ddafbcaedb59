package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs_Flags(t *testing.T) {
	t.Setenv("CONFIG", "")
	dir := t.TempDir()

	o, err := ParseArgs([]string{
		"-a", ":9090",
		"-data", dir,
		"-identity-key", "k",
		"-probe-timeout", "500ms",
		"-cors", "http://localhost:5173, http://127.0.0.1:5173",
		"-c", filepath.Join(dir, "missing.json"),
	})
	require.NoError(t, err)

	assert.Equal(t, ":9090", o.Addr)
	assert.Equal(t, dir, o.DataDir)
	assert.Equal(t, BackendMemory, o.Backend)
	assert.Equal(t, 500*time.Millisecond, o.ProbeTimeout.Duration)
	assert.Equal(t, time.Hour, o.CleanerInterval.Duration)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, o.CORSOrigins)
	assert.Empty(t, o.ProbeAddr, "the memory backend is always reachable")
}

func TestParseArgs_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"addr": ":7000",
		"backend": "postgres",
		"database_dsn": "postgres://file",
		"identity_key": "file-key",
		"cache_retention": "72h"
	}`), 0o600))

	t.Setenv("CONFIG", path)
	t.Setenv("DATABASE_DSN", "postgres://env")

	o, err := ParseArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, ":7000", o.Addr)
	assert.Equal(t, BackendPostgres, o.Backend)
	assert.Equal(t, "postgres://env", o.DatabaseDSN)
	assert.Equal(t, "env:5432", o.ProbeAddr)
	assert.Equal(t, "file-key", o.IdentityKey)
	assert.Equal(t, 72*time.Hour, o.CacheRetention.Duration)
}

func TestParseArgs_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"addr": `), 0o600))
	t.Setenv("CONFIG", path)

	_, err := ParseArgs(nil)

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Options{Backend: BackendMemory, IdentityKey: "k", CleanerInterval: Duration{time.Hour}}
	require.NoError(t, base.Validate())

	tests := map[string]func(o *Options){
		"unknown backend":      func(o *Options) { o.Backend = "mongo" },
		"firestore no project": func(o *Options) { o.Backend = BackendFirestore },
		"postgres no dsn":      func(o *Options) { o.Backend = BackendPostgres },
		"no identity key":      func(o *Options) { o.IdentityKey = "" },
		"zero interval":        func(o *Options) { o.CleanerInterval = Duration{} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			o := base
			mutate(&o)
			assert.Error(t, o.Validate())
		})
	}
}

func TestDefaultProbeAddr(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"memory", Options{Backend: BackendMemory}, ""},
		{"firestore", Options{Backend: BackendFirestore}, FirestoreProbeAddr},
		{"postgres url", Options{Backend: BackendPostgres, DatabaseDSN: "postgres://u:p@db.example:6432/app?sslmode=disable"}, "db.example:6432"},
		{"postgres url without port", Options{Backend: BackendPostgres, DatabaseDSN: "postgresql://db.example/app"}, "db.example:5432"},
		{"postgres key value", Options{Backend: BackendPostgres, DatabaseDSN: "host=db port=5433 dbname=app"}, "db:5433"},
		{"postgres defaults", Options{Backend: BackendPostgres, DatabaseDSN: "dbname=app"}, "localhost:5432"},
		{"postgres socket", Options{Backend: BackendPostgres, DatabaseDSN: "host=/var/run/postgresql dbname=app"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, defaultProbeAddr(&tt.opts))
		})
	}
}

func TestParseArgs_ExplicitProbeWins(t *testing.T) {
	t.Setenv("CONFIG", "")
	o, err := ParseArgs([]string{
		"-backend", "postgres", "-d", "host=db", "-identity-key", "k",
		"-probe", "proxy:443", "-c", filepath.Join(t.TempDir(), "missing.json"),
	})
	require.NoError(t, err)
	assert.Equal(t, "proxy:443", o.ProbeAddr)
}
