// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
//
//	GCMS_STORAGE_DRIVER   memory|sqlite|postgres|blob|dynamodb (default sqlite)
//	GCMS_SQLITE_PATH      sqlite file (default ./gcms.db)
//	GCMS_POSTGRES_DSN     postgres DSN when driver=postgres
//	GCMS_DYNAMODB_TABLE   table when driver=dynamodb (default gcms-snapshots)
//	GCMS_DYNAMODB_ENDPOINT optional endpoint, e.g. DynamoDB Local
//	AWS_REGION            region for S3 and DynamoDB
//	GCMS_BLOB_DRIVER      fs|s3|memory (default fs)
//	GCMS_BLOB_FS_ROOT     root directory for the fs driver (default ./data/blobs)
//	GCMS_BLOB_S3_BUCKET, GCMS_BLOB_S3_REGION, GCMS_BLOB_S3_ENDPOINT, GCMS_BLOB_S3_PATH_STYLE
//	GCMS_JWT_SECRET       enables the local authenticator when set
//	GCMS_SAM_BASE_URL     opportunity lookup service; empty imports placeholders
//	GCMS_HTTP_ADDR        listen address (default :8080)
//	GCMS_LOG_LEVEL        debug|info|warn|error (default info)
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"gcms/internal/blob"
	"gcms/internal/infra/persistence"
	"gcms/internal/infra/persistence/dynamodb"
)

// Config is the resolved runtime configuration.
type Config struct {
	Storage    persistence.Config
	Blob       blob.Config
	JWTSecret  string
	SAMBaseURL string
	HTTPAddr   string
	LogLevel   slog.Level
}

// Load reads the given .env files (".env" when none are named) into the
// process environment, without overriding variables already set, and then
// resolves the configuration. Missing files are ignored.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv resolves the configuration through getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	pathStyle := false
	if raw := getenv("GCMS_BLOB_S3_PATH_STYLE"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("GCMS_BLOB_S3_PATH_STYLE: %w", err)
		}
		pathStyle = v
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(get("GCMS_LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("GCMS_LOG_LEVEL: %w", err)
	}
	region := getenv("AWS_REGION")
	blobCfg := blob.Config{
		Driver: blob.Driver(get("GCMS_BLOB_DRIVER", string(blob.DriverFilesystem))),
		FSRoot: get("GCMS_BLOB_FS_ROOT", "./data/blobs"),
		S3: blob.S3Config{
			Bucket:    getenv("GCMS_BLOB_S3_BUCKET"),
			Region:    get("GCMS_BLOB_S3_REGION", region),
			Endpoint:  getenv("GCMS_BLOB_S3_ENDPOINT"),
			PathStyle: pathStyle,
		},
	}
	cfg := Config{
		Storage: persistence.Config{
			Driver:      persistence.Driver(get("GCMS_STORAGE_DRIVER", string(persistence.DriverSQLite))),
			SQLitePath:  get("GCMS_SQLITE_PATH", "./gcms.db"),
			PostgresDSN: getenv("GCMS_POSTGRES_DSN"),
			Blob:        blobCfg,
			DynamoDB: dynamodb.Config{
				Table:    getenv("GCMS_DYNAMODB_TABLE"),
				Region:   region,
				Endpoint: getenv("GCMS_DYNAMODB_ENDPOINT"),
			},
		},
		Blob:       blobCfg,
		JWTSecret:  getenv("GCMS_JWT_SECRET"),
		SAMBaseURL: getenv("GCMS_SAM_BASE_URL"),
		HTTPAddr:   get("GCMS_HTTP_ADDR", ":8080"),
		LogLevel:   level,
	}
	switch cfg.Storage.Driver {
	case persistence.DriverMemory, persistence.DriverSQLite, persistence.DriverPostgres, persistence.DriverBlob, persistence.DriverDynamoDB:
	default:
		return Config{}, fmt.Errorf("unknown storage driver %s", cfg.Storage.Driver)
	}
	return cfg, nil
}

// Logger returns a JSON slog logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}
