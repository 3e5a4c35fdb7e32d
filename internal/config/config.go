package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Loan     LoanConfig
	Agent    AgentConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

// LoanConfig holds the lending product parameters. The interest rate covers
// the full tenure and amounts are denominated in KES.
type LoanConfig struct {
	MinAmount         string
	MaxAmount         string
	DefaultRate       string
	DefaultTenureDays int
}

type AgentConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	AssistantID    string
	GatewayTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Loan: LoanConfig{
			MinAmount:         getEnv("LOAN_MIN_AMOUNT", "1000"),
			MaxAmount:         getEnv("LOAN_MAX_AMOUNT", "50000"),
			DefaultRate:       getEnv("LOAN_DEFAULT_INTEREST_RATE", "15"),
			DefaultTenureDays: getEnvAsInt("LOAN_DEFAULT_TENURE_DAYS", 30),
		},
		Agent: AgentConfig{
			BaseURL:        getEnv("AGENT_BASE_URL", "https://api.openai.com/v1"),
			APIKey:         getEnv("AGENT_API_KEY", ""),
			Model:          getEnv("AGENT_MODEL", "gpt-4o"),
			AssistantID:    getEnv("AGENT_ASSISTANT_ID", ""),
			GatewayTimeout: time.Duration(getEnvAsInt("AGENT_GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
