package config

import "os"

type Config struct {
	ServerURL      string
	TimeoutSeconds int
}

func Load() Config {
	return Config{
		ServerURL:      getEnv("REPORTAGUA_SERVER_URL", "http://localhost:8000"),
		TimeoutSeconds: 5,
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
