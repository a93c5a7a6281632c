// Package config reads service settings from the environment, loading a
// .env file first when one is present.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port          string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret []byte
	TokenTTL  time.Duration
	OTPTTL    time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	UploadDir     string
	PublicBaseURL string
	CORSOrigins   []string

	RateLimit float64
	RateBurst int

	SweepSpec string

	LogLevel  string
	LogFormat string
}

// Load never fails: missing values fall back to development defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found; using system environment")
	}

	port := getenv("PORT", ":8080")
	if port[0] != ':' {
		port = ":" + port
	}

	return Config{
		Port:          port,
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getenv("MONGO_DB", "unihive"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		JWTSecret: []byte(getenv("JWT_SECRET", "dev-secret-change-me")),
		TokenTTL:  getDuration("TOKEN_TTL", 72*time.Hour),
		OTPTTL:    getDuration("OTP_TTL", 10*time.Minute),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getenv("MAIL_FROM", "no-reply@unihive.local"),

		UploadDir:     getenv("UPLOAD_DIR", "static/uploads"),
		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		CORSOrigins:   getList("CORS_ORIGINS", []string{"*"}),

		RateLimit: getFloat("RATE_LIMIT", 5),
		RateBurst: getInt("RATE_BURST", 10),

		SweepSpec: getenv("SWEEP_SPEC", "@every 1h"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "console"),
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getList(key string, def []string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
