package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"gcms/internal/blob"
	"gcms/internal/infra/persistence"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Storage.Driver != persistence.DriverSQLite || cfg.Storage.SQLitePath != "./gcms.db" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != blob.DriverFilesystem || cfg.Blob.FSRoot != "./data/blobs" {
		t.Fatalf("unexpected blob defaults %+v", cfg.Blob)
	}
	if cfg.HTTPAddr != ":8080" || cfg.LogLevel != slog.LevelInfo || cfg.JWTSecret != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"GCMS_STORAGE_DRIVER":     "dynamodb",
		"GCMS_DYNAMODB_TABLE":     "snapshots",
		"GCMS_DYNAMODB_ENDPOINT":  "http://localhost:8000",
		"AWS_REGION":              "eu-west-1",
		"GCMS_BLOB_DRIVER":        "s3",
		"GCMS_BLOB_S3_BUCKET":     "docs",
		"GCMS_BLOB_S3_PATH_STYLE": "true",
		"GCMS_LOG_LEVEL":          "debug",
		"GCMS_HTTP_ADDR":          "127.0.0.1:9000",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	d := cfg.Storage.DynamoDB
	if cfg.Storage.Driver != persistence.DriverDynamoDB || d.Table != "snapshots" || d.Endpoint != "http://localhost:8000" || d.Region != "eu-west-1" {
		t.Fatalf("unexpected dynamodb config %+v", d)
	}
	s3 := cfg.Blob.S3
	if cfg.Blob.Driver != blob.DriverS3 || s3.Bucket != "docs" || !s3.PathStyle || s3.Region != "eu-west-1" {
		t.Fatalf("unexpected s3 config %+v", s3)
	}
	if cfg.Storage.Blob.S3.Bucket != "docs" {
		t.Fatalf("blob storage driver must share the blob config")
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"driver":     {"GCMS_STORAGE_DRIVER": "redis"},
		"path style": {"GCMS_BLOB_S3_PATH_STYLE": "maybe"},
		"log level":  {"GCMS_LOG_LEVEL": "verbose"},
	} {
		if _, err := FromEnv(envMap(env)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	const key = "GCMS_SAM_BASE_URL"
	for _, k := range []string{key, "GCMS_STORAGE_DRIVER"} {
		if _, set := os.LookupEnv(k); set {
			t.Skipf("%s already set in the environment", k)
		}
	}
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte(key+"=http://lookup.local\nGCMS_STORAGE_DRIVER=memory\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Unsetenv(key)
		_ = os.Unsetenv("GCMS_STORAGE_DRIVER")
	})
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SAMBaseURL != "http://lookup.local" || cfg.Storage.Driver != persistence.DriverMemory {
		t.Fatalf("env file not applied: %+v", cfg)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file must be ignored: %v", err)
	}
}
