// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON config
// file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

// FirestoreProbeAddr is dialed to check reachability of the firestore backend.
const FirestoreProbeAddr = "firestore.googleapis.com:443"

// Remote store backends.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// Duration is a time.Duration that reads "30s"-style strings from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Options holds the configuration values for the application.
type Options struct {
	// Addr is the local API listening address (ip:port).
	Addr string `json:"addr"`

	// DataDir holds the local record files and the preferences database.
	DataDir string `json:"data_dir"`

	// Backend selects the remote document store: memory, firestore or postgres.
	Backend string `json:"backend"`

	// ProjectID is the Firestore project.
	ProjectID string `json:"project_id"`

	// DatabaseDSN is the PostgreSQL connection string of the postgres backend.
	DatabaseDSN string `json:"database_dsn"`

	// IdentityKey verifies identity tokens.
	IdentityKey string `json:"identity_key"`

	// ProbeAddr is dialed to decide whether the remote store is reachable.
	// Empty after parsing means the backend is always reachable.
	ProbeAddr    string   `json:"probe_addr"`
	ProbeTimeout Duration `json:"probe_timeout"`

	// CacheRetention is how long records stay in the local cache while a
	// remote store is authoritative.
	CacheRetention  Duration `json:"cache_retention"`
	CleanerInterval Duration `json:"cleaner_interval"`

	LogLevel string `json:"log_level"`

	// CORSOrigins may call the API from a browser.
	CORSOrigins []string `json:"cors_origins"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "fitsync")
	}
	return ".fitsync"
}

// ParseArgs builds Options from args, then the config file, then the environment.
func ParseArgs(args []string) (*Options, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	o := &Options{}
	var probeTimeout, retention, interval time.Duration
	var origins string

	fs := flag.NewFlagSet("fitsync", flag.ContinueOnError)
	fs.StringVar(&o.Addr, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.DataDir, "data", defaultDataDir(), "local data directory")
	fs.StringVar(&o.Backend, "backend", BackendMemory, "remote store: memory, firestore or postgres")
	fs.StringVar(&o.ProjectID, "project", "", "firestore project id")
	fs.StringVar(&o.DatabaseDSN, "d", "", "postgres dsn")
	fs.StringVar(&o.IdentityKey, "identity-key", "", "identity token verification key")
	fs.StringVar(&o.ProbeAddr, "probe", "", "reachability probe address (default derived from the backend)")
	fs.DurationVar(&probeTimeout, "probe-timeout", 2*time.Second, "reachability probe timeout")
	fs.DurationVar(&retention, "cache-retention", 30*24*time.Hour, "local cache retention")
	fs.DurationVar(&interval, "cleaner-interval", time.Hour, "local cache cleaner interval")
	fs.StringVar(&o.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&origins, "cors", "", "comma-separated browser origins allowed to call the API")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.ProbeTimeout.Duration = probeTimeout
	o.CacheRetention.Duration = retention
	o.CleanerInterval.Duration = interval
	o.CORSOrigins = splitList(origins)

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	if o.Config != "" {
		data, err := os.ReadFile(o.Config)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := json.Unmarshal(data, o); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnv(o)
	if o.ProbeAddr == "" {
		o.ProbeAddr = defaultProbeAddr(o)
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Parse parses the process arguments and exits on error.
func Parse() *Options {
	o, err := ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return o
}

func applyEnv(o *Options) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setDuration := func(dst *Duration, key string) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				dst.Duration = d
			}
		}
	}
	setString(&o.Addr, "SERVER_ADDRESS")
	setString(&o.DataDir, "FITSYNC_DATA_DIR")
	setString(&o.Backend, "FITSYNC_BACKEND")
	setString(&o.ProjectID, "PROJECT_ID")
	setString(&o.DatabaseDSN, "DATABASE_DSN")
	setString(&o.IdentityKey, "IDENTITY_KEY")
	setString(&o.ProbeAddr, "PROBE_ADDR")
	setString(&o.LogLevel, "LOG_LEVEL")
	setDuration(&o.ProbeTimeout, "PROBE_TIMEOUT")
	setDuration(&o.CacheRetention, "CACHE_RETENTION")
	setDuration(&o.CleanerInterval, "CLEANER_INTERVAL")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		o.CORSOrigins = splitList(v)
	}
}

// defaultProbeAddr is the address of the selected backend itself.
func defaultProbeAddr(o *Options) string {
	switch o.Backend {
	case BackendFirestore:
		return FirestoreProbeAddr
	case BackendPostgres:
		return postgresAddr(o.DatabaseDSN)
	default:
		return ""
	}
}

// postgresAddr extracts host:port from a URL or key=value DSN. Unix socket
// hosts yield "".
func postgresAddr(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		kv, err := pq.ParseURL(dsn)
		if err != nil {
			return ""
		}
		dsn = kv
	}
	host, port := "localhost", "5432"
	for _, field := range strings.Fields(dsn) {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		v = strings.Trim(v, "'")
		switch k {
		case "host":
			host = v
		case "port":
			port = v
		}
	}
	if strings.HasPrefix(host, "/") {
		return ""
	}
	return net.JoinHostPort(host, port)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks that the selected backend has what it needs.
func (o *Options) Validate() error {
	switch o.Backend {
	case BackendMemory:
	case BackendFirestore:
		if o.ProjectID == "" {
			return errors.New("firestore backend requires a project id")
		}
	case BackendPostgres:
		if o.DatabaseDSN == "" {
			return errors.New("postgres backend requires a database dsn")
		}
	default:
		return fmt.Errorf("unknown backend %q", o.Backend)
	}
	if o.IdentityKey == "" {
		return errors.New("identity key is required")
	}
	if o.CleanerInterval.Duration <= 0 {
		return errors.New("cleaner interval must be positive")
	}
	return nil
}
