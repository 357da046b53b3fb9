package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestDecodeDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Decode(v)
	if err != nil {
		t.Fatalf("decode defaults failed: %v", err)
	}
	if cfg.QR.Size != 600 {
		t.Fatalf("qr size want 600 got %d", cfg.QR.Size)
	}
	if cfg.Serial.Lines["standard"] != 6 || cfg.Serial.Lines["gram"] != 5 {
		t.Fatalf("unexpected serial lines: %+v", cfg.Serial.Lines)
	}
	if cfg.Storage.Production {
		t.Fatalf("production should default to false")
	}
	if cfg.Storage.Local.PublicPrefix != "/qr" {
		t.Fatalf("local public prefix want /qr got %s", cfg.Storage.Local.PublicPrefix)
	}
}

func TestLoadReadsFlatObjectStoreEnv(t *testing.T) {
	t.Setenv("OBJECT_STORE_ENDPOINT", "https://s3.example.com")
	t.Setenv("OBJECT_STORE_BUCKET", "qr-bucket")
	t.Setenv("OBJECT_STORE_ACCESS_KEY", "ak")
	t.Setenv("OBJECT_STORE_SECRET_KEY", "sk")
	t.Setenv("OBJECT_STORE_PUBLIC_BASE_URL", "https://cdn.example.com")
	t.Setenv("APP_PRODUCTION", "true")

	cfg := Load()
	store := cfg.Storage.ObjectStore
	if store.Endpoint != "https://s3.example.com" || store.Bucket != "qr-bucket" {
		t.Fatalf("unexpected object store config: %+v", store)
	}
	if store.AccessKey != "ak" || store.SecretKey != "sk" || store.PublicBaseURL != "https://cdn.example.com" {
		t.Fatalf("unexpected object store credentials: %+v", store)
	}
	if !cfg.Storage.Production {
		t.Fatalf("APP_PRODUCTION should enable production mode")
	}
}

func TestLoadReadsNestedEnvKey(t *testing.T) {
	t.Setenv("SERIAL_MAX_QUANTITY", "50")
	cfg := Load()
	if cfg.Serial.MaxQuantity != 50 {
		t.Fatalf("max quantity want 50 got %d", cfg.Serial.MaxQuantity)
	}
}
