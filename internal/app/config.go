package app

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	MongoURI      string
	MongoDatabase string

	CacheDir          string
	CacheTTLHours     int64
	MaxCacheSizeMB    int64
	CacheSweepMinutes int64

	FFMPEGPath       string
	TranscodeWorkers int
	YTDLPPath        string

	MirrorsFile         string
	MirrorHealthFeedURL string

	TidalClientID     string
	TidalClientSecret string
	DabSession        string
	DabVisitorID      string
	DeezerGatewayURL  string

	CORSAllowedOrigins []string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DB", "audiocast"),

		CacheDir:          getEnv("CACHE_DIR", "cache"),
		CacheTTLHours:     getEnvInt64("CACHE_TTL_HOURS", 24),
		MaxCacheSizeMB:    getEnvInt64("MAX_CACHE_SIZE_MB", 2048),
		CacheSweepMinutes: getEnvInt64("CACHE_SWEEP_MINUTES", 30),

		FFMPEGPath:       getEnv("FFMPEG_PATH", "ffmpeg"),
		TranscodeWorkers: int(getEnvInt64("TRANSCODE_WORKERS", 4)),
		YTDLPPath:        getEnv("YTDLP_PATH", "yt-dlp"),

		MirrorsFile:         getEnv("MIRRORS_FILE", ""),
		MirrorHealthFeedURL: getEnv("MIRROR_HEALTH_FEED_URL", ""),

		TidalClientID:     getEnv("TIDAL_CLIENT_ID", ""),
		TidalClientSecret: getEnv("TIDAL_CLIENT_SECRET", ""),
		DabSession:        getEnv("DAB_SESSION", ""),
		DabVisitorID:      getEnv("DAB_VISITOR_ID", ""),
		DeezerGatewayURL:  getEnv("DEEZER_API_URL", "https://api.deezmate.com"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
