package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string
	JWTSecret string

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// storage backends
	HistoryBackend string
	PrefsBackend   string

	// AI provider
	AIProvider       string
	AIGatewayBaseURL string
	AIGatewayAPIKey  string
	AIGatewayModel   string
	AITemperature    float64
	OllamaBaseURL    string
	OllamaModel      string

	// backend function, as seen by clients
	FunctionURL    string
	FunctionAPIKey string
	GatewayTimeout time.Duration

	CORSOrigins []string

	Logging Logging
}

type Logging struct {
	Level       string
	Encoding    string
	Development bool
	ServiceName string
}

// Load reads the process environment, after applying an optional .env file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
		// missing .env is fine, variables may come from the environment
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	driver := strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER")))
	if driver == "" {
		driver = "sqlite"
	}

	// DSN demo (mysql)：
	// app:apppass@tcp(127.0.0.1:3306)/health_assistant?charset=utf8mb4&parseTime=true&loc=Local
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "file:health-assistant.db?_pragma=busy_timeout(5000)"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	historyBackend := strings.ToLower(os.Getenv("HISTORY_BACKEND"))
	if historyBackend == "" {
		historyBackend = "sql"
	}
	prefsBackend := strings.ToLower(os.Getenv("PREFS_BACKEND"))
	if prefsBackend == "" {
		prefsBackend = "sql"
	}

	aiProvider := strings.ToLower(os.Getenv("AI_PROVIDER"))
	if aiProvider == "" {
		aiProvider = "gateway"
	}

	gatewayBaseURL := os.Getenv("AI_GATEWAY_BASE_URL")
	if gatewayBaseURL == "" {
		gatewayBaseURL = "https://ai.gateway.lovable.dev/v1"
	}
	gatewayModel := os.Getenv("AI_GATEWAY_MODEL")
	if gatewayModel == "" {
		gatewayModel = "google/gemini-2.5-flash"
	}

	temperature := 0.3
	if v := os.Getenv("AI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			temperature = f
		}
	}

	ollamaBaseURL := os.Getenv("OLLAMA_BASE_URL")
	if ollamaBaseURL == "" {
		ollamaBaseURL = "http://localhost:11434"
	}
	ollamaModel := os.Getenv("OLLAMA_MODEL")
	if ollamaModel == "" {
		ollamaModel = "llama3:latest"
	}

	functionURL := os.Getenv("FUNCTION_URL")
	if functionURL == "" {
		functionURL = "http://localhost:8080/functions/v1/health-chat"
	}

	gatewayTimeout := 90 * time.Second
	if v := os.Getenv("GATEWAY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			gatewayTimeout = d
		}
	}

	origins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins = splitList(v)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logEncoding := os.Getenv("LOG_ENCODING")
	if logEncoding == "" {
		logEncoding = "console"
	}
	logDev, _ := strconv.ParseBool(os.Getenv("LOG_DEVELOPMENT"))
	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "health-assistant"
	}

	return Config{
		HTTPAddr:  httpAddr,
		JWTSecret: secret,

		DBDriver: driver,
		DBDSN:    dsn,

		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		HistoryBackend: historyBackend,
		PrefsBackend:   prefsBackend,

		AIProvider:       aiProvider,
		AIGatewayBaseURL: gatewayBaseURL,
		AIGatewayAPIKey:  os.Getenv("AI_GATEWAY_API_KEY"),
		AIGatewayModel:   gatewayModel,
		AITemperature:    temperature,
		OllamaBaseURL:    ollamaBaseURL,
		OllamaModel:      ollamaModel,

		FunctionURL:    functionURL,
		FunctionAPIKey: os.Getenv("FUNCTION_API_KEY"),
		GatewayTimeout: gatewayTimeout,

		CORSOrigins: origins,

		Logging: Logging{
			Level:       strings.ToLower(logLevel),
			Encoding:    strings.ToLower(logEncoding),
			Development: logDev,
			ServiceName: serviceName,
		},
	}, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
