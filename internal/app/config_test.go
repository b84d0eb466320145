package app

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "LOG_LEVEL", "CACHE_DIR", "CACHE_TTL_HOURS",
		"MAX_CACHE_SIZE_MB", "FFMPEG_PATH", "TRANSCODE_WORKERS",
		"MONGO_URI", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.CacheDir != "cache" || cfg.CacheTTLHours != 24 || cfg.MaxCacheSizeMB != 2048 {
		t.Errorf("cache config = %q/%d/%d", cfg.CacheDir, cfg.CacheTTLHours, cfg.MaxCacheSizeMB)
	}
	if cfg.FFMPEGPath != "ffmpeg" || cfg.TranscodeWorkers != 4 {
		t.Errorf("transcode config = %q/%d", cfg.FFMPEGPath, cfg.TranscodeWorkers)
	}
	if cfg.MongoURI != "" {
		t.Errorf("MongoURI = %q, want empty (mongo optional)", cfg.MongoURI)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Errorf("origins = %v, want nil", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("CACHE_TTL_HOURS", "6")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg := LoadConfig()
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want lowercased", cfg.LogLevel)
	}
	if cfg.CacheTTLHours != 6 {
		t.Errorf("CacheTTLHours = %d", cfg.CacheTTLHours)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Errorf("origins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
}

func TestGetEnvInt64RejectsGarbage(t *testing.T) {
	t.Setenv("CACHE_TTL_HOURS", "not-a-number")
	if got := LoadConfig().CacheTTLHours; got != 24 {
		t.Errorf("CacheTTLHours = %d, want default on parse failure", got)
	}

	t.Setenv("CACHE_TTL_HOURS", "-5")
	if got := LoadConfig().CacheTTLHours; got != 24 {
		t.Errorf("CacheTTLHours = %d, want default on negative value", got)
	}
}

func TestLoadMirrorsDefaults(t *testing.T) {
	cfg, err := LoadMirrors("")
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Providers["tidal"]) == 0 {
		t.Fatal("built-in tidal mirror list missing")
	}
}

func TestLoadMirrorsMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirrors.yaml")
	content := `
providers:
  tidal:
    - https://custom.mirror.example
healthFeeds:
  tidal: https://feeds.example/tidal.txt
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadMirrors(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.Providers["tidal"], []string{"https://custom.mirror.example"}) {
		t.Fatalf("tidal mirrors = %v", cfg.Providers["tidal"])
	}
	if cfg.HealthFeeds["tidal"] != "https://feeds.example/tidal.txt" {
		t.Fatalf("health feed = %q", cfg.HealthFeeds["tidal"])
	}
}

func TestLoadMirrorsBadFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadMirrors(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(cfg.Providers["tidal"]) == 0 {
		t.Fatal("defaults must survive a failed load")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("providers: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadMirrors(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if len(cfg.Providers["tidal"]) == 0 {
		t.Fatal("defaults must survive a parse error")
	}
}
