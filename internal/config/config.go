package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                      string
	VerifyToken               string
	WhatsAppToken             string
	PhoneNumberID             string
	WhatsAppBusinessAccountID string
	GraphAPIBaseURL           string
	DBDriver                  string // sqlite or postgres
	DBPath                    string
	DBDSN                     string
	HTTPTimeout               time.Duration
	CoexPollInterval          time.Duration
	CoexMaxAttempts           int
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:                      getEnv("PORT", "8080"),
		VerifyToken:               getEnv("VERIFY_TOKEN", ""),
		WhatsAppToken:             getEnv("WHATSAPP_TOKEN", ""),
		PhoneNumberID:             getEnv("PHONE_NUMBER_ID", ""),
		WhatsAppBusinessAccountID: getEnv("WABA_ID", ""),
		GraphAPIBaseURL:           getEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com/v19.0"),
		DBDriver:                  getEnv("DB_DRIVER", "sqlite"),
		DBPath:                    getEnv("DB_PATH", "./whatsapp-crm.db"),
		DBDSN:                     getEnv("DB_DSN", ""),
		HTTPTimeout:               getDuration("HTTP_TIMEOUT", 15*time.Second),
		CoexPollInterval:          getDuration("COEX_POLL_INTERVAL", 5*time.Second),
		CoexMaxAttempts:           getInt("COEX_MAX_ATTEMPTS", 60),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
