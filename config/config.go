package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	HTTPAddr string
	LogLevel string
	TimeZone string

	JWTSecret string

	SMTPHost  string
	SMTPPort  string
	SMTPUser  string
	SMTPPass  string
	EmailFrom string
	// AdminEmail receives released-session alerts; empty disables them.
	AdminEmail string

	// Kafka
	KafkaBrokers       string
	KafkaGroupID       string
	KafkaLeadTopic     string
	KafkaPresenceTopic string
	KafkaEmailTopic    string

	CourseCacheTTL  time.Duration
	CourseCacheSize int
}

var AppConfig Config

func LoadConfig() {
	// Try loading .env from different locations
	envLocations := []string{
		".env",              // project root
		"config/.env",       // config subdirectory
		"../config/.env",    // one level up
		"../../config/.env", // two levels up
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = Config{
		DBDriver:   getEnvWithDefault("DB_DRIVER", "postgres"),
		DBHost:     getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:     getEnvWithDefault("DB_PORT", "5432"),
		DBUser:     getEnvWithDefault("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnvWithDefault("DB_NAME", "admissions"),
		DBSSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
		SQLitePath: getEnvWithDefault("SQLITE_PATH", "data/admissions.db"),

		HTTPAddr: getEnvWithDefault("HTTP_ADDR", ":8080"),
		LogLevel: getEnvWithDefault("LOG_LEVEL", "INFO"),
		TimeZone: getEnvWithDefault("TIMEZONE", "UTC"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		SMTPHost:   getEnvWithDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:   getEnvWithDefault("SMTP_PORT", "587"),
		SMTPUser:   os.Getenv("SMTP_USER"),
		SMTPPass:   os.Getenv("SMTP_PASS"),
		EmailFrom:  os.Getenv("EMAIL_FROM"),
		AdminEmail: os.Getenv("ADMIN_EMAIL"),

		// Kafka settings (comma-separated brokers, empty disables Kafka)
		KafkaBrokers:       os.Getenv("KAFKA_BROKERS"),
		KafkaGroupID:       getEnvWithDefault("KAFKA_GROUP_ID", "admissions-crm"),
		KafkaLeadTopic:     getEnvWithDefault("KAFKA_LEAD_TOPIC", "lead-events"),
		KafkaPresenceTopic: getEnvWithDefault("KAFKA_PRESENCE_TOPIC", "presence-events"),
		KafkaEmailTopic:    getEnvWithDefault("KAFKA_EMAIL_TOPIC", "emails"),

		CourseCacheTTL:  getDurationWithDefault("COURSE_CACHE_TTL", 5*time.Minute),
		CourseCacheSize: getIntWithDefault("COURSE_CACHE_SIZE", 256),
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

// GetDBConnString returns the lib/pq connection string for the postgres driver.
func GetDBConnString() string {
	return "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSSLMode
}

// GetDSN returns the data source name for the configured driver.
func GetDSN() string {
	if AppConfig.DBDriver == "sqlite" {
		return AppConfig.SQLitePath
	}
	return GetDBConnString()
}

// KafkaBrokerList splits KAFKA_BROKERS and drops blank entries.
func KafkaBrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(AppConfig.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Location is the time zone that defines an attendance day.
func Location() *time.Location {
	loc, err := time.LoadLocation(AppConfig.TimeZone)
	if err != nil {
		log.Printf("Unknown TIMEZONE %q, falling back to UTC", AppConfig.TimeZone)
		return time.UTC
	}
	return loc
}
