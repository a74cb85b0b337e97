package config

import "os"

type Config struct {
	Port      string
	DBPath    string
	PGURL     string
	Workers   int
	UploadDir string
}

func Load() Config {
	return Config{
		Port:      getEnv("PORT", "8080"),
		DBPath:    getEnv("DB_PATH", "analytics.db"),
		PGURL:     getEnv("PG_URL", ""),
		Workers:   getEnvInt("WORKERS", 2),
		UploadDir: getEnv("UPLOAD_DIR", os.TempDir()),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int(c-'0')
	}
	return n
}
