package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
}

type Config struct {
	// Required
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppVerifyToken   string
	SheetID               string
	OpenAIAPIKey          string

	// Google Sheets credentials: inline JSON wins over the file path
	SheetsCredentialsJSON string
	SheetsCredentialsFile string

	// Optional with defaults
	HTTPPort           int
	DashboardAuthToken string
	DBPath             string
	SessionFile        string
	SessionTTLHours    int
	SheetCacheTTLSecs  int
	CheckoutHour       int
	OpenAIModel        string
	MessageQueueSize   int
	ResendAPIKey       string
	StaffEmail         string
	EmailFrom          string
}

func LoadFromEnv() *Config {
	cfg := &Config{
		// Required
		WhatsAppAccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		WhatsAppPhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		WhatsAppVerifyToken:   os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		SheetID:               os.Getenv("GOOGLE_SHEET_ID"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),

		SheetsCredentialsJSON: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_JSON"),
		SheetsCredentialsFile: getEnvOrDefault("GOOGLE_SHEETS_CREDENTIALS_PATH", "./credentials.json"),

		// Optional with defaults
		HTTPPort:           getEnvAsIntOrDefault("CONCIERGE_HTTP_PORT", 5000),
		DashboardAuthToken: getEnvOrDefault("DASHBOARD_AUTH_TOKEN", "hotel-staff-2024"),
		DBPath:             getEnvOrDefault("CONCIERGE_DB_PATH", "./concierge.db"),
		SessionFile:        getEnvOrDefault("CONCIERGE_SESSION_FILE", "./sessions.json"),
		SessionTTLHours:    getEnvAsIntOrDefault("CONCIERGE_SESSION_TTL_HOURS", 48),
		SheetCacheTTLSecs:  getEnvAsIntOrDefault("CONCIERGE_SHEET_CACHE_TTL", 60),
		CheckoutHour:       getEnvAsIntOrDefault("CONCIERGE_CHECKOUT_HOUR", 11),
		OpenAIModel:        getEnvOrDefault("CONCIERGE_OPENAI_MODEL", "gpt-4o-mini"),
		MessageQueueSize:   getEnvAsIntOrDefault("CONCIERGE_MESSAGE_QUEUE_SIZE", 1000),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		StaffEmail:         os.Getenv("CONCIERGE_STAFF_EMAIL"),
		EmailFrom:          getEnvOrDefault("CONCIERGE_EMAIL_FROM", "Concierge <bookings@resend.dev>"),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
