package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`

	DBDriver string `json:"dbdriver"`
	DBHost   string `json:"dbhost"`
	DBPort   uint16 `json:"dbport"`
	DBName   string `json:"dbname"`
	DBUSER   string `json:"dbuser"`
	DBPass   string `json:"dbpass"`

	JWTSecret     string `json:"-"`
	AdminEmail    string `json:"-"`
	AdminPassword string `json:"-"`

	Currency          string `json:"currency"`
	RazorpayKeyID     string `json:"-"`
	RazorpayKeySecret string `json:"-"`

	CloudinaryCloudName string `json:"-"`
	CloudinaryAPIKey    string `json:"-"`
	CloudinaryAPISecret string `json:"-"`

	SMTPHost  string `json:"-"`
	SMTPPort  int    `json:"-"`
	EmailUser string `json:"-"`
	EmailPass string `json:"-"`

	GeoIPDBPath string `json:"-"`
}

var config *Config
var once sync.Once

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
// A missing .env file is not fatal; the process environment is used as is.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded, using environment variables: %v", err)
		}

		appPort, _ := strconv.ParseUint(getEnv("APPPORT", "4000"), 10, 16)
		dbPort, _ := strconv.ParseUint(getEnv("DBPORT", "3306"), 10, 16)
		smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "587"))

		config = &Config{
			AppName:  getEnv("APPNAME", "Doctor Appointment"),
			AppEnv:   os.Getenv("APPENV"),
			AppPort:  uint16(appPort),
			GinMode:  getEnv("GINMODE", "debug"),
			DBDriver: getEnv("DBDRIVER", "mysql"),
			DBHost:   os.Getenv("DBHOST"),
			DBPort:   uint16(dbPort),
			DBName:   os.Getenv("DBNAME"),
			DBUSER:   os.Getenv("DBUSER"),
			DBPass:   os.Getenv("DBPASS"),

			JWTSecret:     os.Getenv("JWTSECRET"),
			AdminEmail:    os.Getenv("ADMIN_EMAIL"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),

			Currency:          getEnv("CURRENCY", "INR"),
			RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
			RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),

			CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

			SMTPHost:  os.Getenv("SMTP_HOST"),
			SMTPPort:  smtpPort,
			EmailUser: os.Getenv("EMAIL_USER"),
			EmailPass: os.Getenv("EMAIL_PASS"),

			GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),
		}
	})
	return config
}

// IsTest reports whether the application runs with APPENV=test.
// The environment is consulted directly so tests can flip it with t.Setenv
// after the singleton has been built.
func IsTest() bool {
	return os.Getenv("APPENV") == "test"
}

// ConnectDatabase opens the relational store selected by DBDRIVER.
// In the test environment an isolated in-memory sqlite database is returned.
func ConnectDatabase() (*gorm.DB, error) {
	cfg := LoadConfig()

	if IsTest() {
		dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
		db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer; keep one connection so transactions serialise cleanly.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
		return db, nil
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
			cfg.DBHost, cfg.DBUSER, cfg.DBPass, cfg.DBName, cfg.DBPort)
		dialector = postgres.Open(dsn)
	case "mysql", "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUSER, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DBDRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}
