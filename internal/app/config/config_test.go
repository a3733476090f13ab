package config

import (
	"testing"
	"time"
)

func TestLoadEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URI", "postgres://localhost/ppobmart")

	c := New()
	if err := c.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}

	if c.Server.Listen != "localhost:8088" {
		t.Errorf("listen = %q", c.Server.Listen)
	}
	if c.Upload.Backend != UploadBackendLocal || c.Upload.MaxBytes != 5<<20 {
		t.Errorf("upload = %+v", c.Upload)
	}
	if c.Lock.Backend != LockBackendMemory {
		t.Errorf("lock backend = %q", c.Lock.Backend)
	}
	if !c.Sync.Enabled || c.Sync.Interval != time.Minute || c.Sync.MaxAttempts != 5 {
		t.Errorf("sync = %+v", c.Sync)
	}
	if c.Catalog.MockFallback || c.Catalog.Remote {
		t.Errorf("catalog fallback must be opt-in: %+v", c.Catalog)
	}
	if c.Gateway.Configured() {
		t.Error("gateway configured without credentials")
	}
}

func TestLoadEnv_Gateway(t *testing.T) {
	t.Setenv("INDOTEL_MMID", "MM01")
	t.Setenv("INDOTEL_PASSWORD", "secret")
	t.Setenv("INDOTEL_TIMEOUT", "5s")

	c := New()
	if err := c.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}

	if !c.Gateway.Configured() || c.Gateway.Timeout != 5*time.Second {
		t.Errorf("gateway = %+v", c.Gateway)
	}
}

func TestLoadEnv_CatalogFallbackOptIn(t *testing.T) {
	t.Setenv("CATALOG_REMOTE", "1")
	t.Setenv("CATALOG_MOCK_FALLBACK", "1")

	c := New()
	if err := c.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}

	if !c.Catalog.Remote || !c.Catalog.MockFallback {
		t.Errorf("catalog = %+v", c.Catalog)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"s3 without bucket", map[string]string{"UPLOAD_BACKEND": "s3"}, true},
		{"s3 with bucket", map[string]string{"UPLOAD_BACKEND": "s3", "UPLOAD_S3_BUCKET": "proofs"}, false},
		{"unknown upload backend", map[string]string{"UPLOAD_BACKEND": "ftp"}, true},
		{"redis locks", map[string]string{"LOCK_BACKEND": "redis"}, false},
		{"unknown lock backend", map[string]string{"LOCK_BACKEND": "etcd"}, true},
		{"zero upload limit", map[string]string{"UPLOAD_MAX_BYTES": "0"}, true},
		{"malformed duration", map[string]string{"SYNC_INTERVAL": "soon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			c := New()
			err := c.LoadEnv()
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
