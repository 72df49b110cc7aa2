package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ariebrainware/doctor-appointment/booking"
	"github.com/ariebrainware/doctor-appointment/config"
	"github.com/ariebrainware/doctor-appointment/endpoint"
	"github.com/ariebrainware/doctor-appointment/middleware"
	"github.com/ariebrainware/doctor-appointment/model"
	"github.com/ariebrainware/doctor-appointment/payment"
	"github.com/ariebrainware/doctor-appointment/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const doctorListTTL = time.Minute

func buildProviders(cfg *config.Config, db *gorm.DB) *middleware.Providers {
	var gateway payment.Gateway
	if cfg.RazorpayKeyID != "" && cfg.RazorpayKeySecret != "" {
		gateway = payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	} else {
		log.Println("Razorpay credentials not set, using the in-memory payment gateway")
		gateway = payment.NewFakeGateway()
	}

	var images util.ImageUploader = util.DisabledUploader{}
	if up, err := util.NewCloudinaryUploader(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret); err != nil {
		log.Printf("Image uploads disabled: %v", err)
	} else {
		images = up
	}

	p := &middleware.Providers{
		Booking:  booking.NewService(db),
		Payments: payment.NewService(db, gateway, cfg.Currency),
		Images:   images,
		Doctors:  util.NewDoctorListCache(doctorListTTL),
	}
	// A nil *SMTPMailer must not end up inside the interface.
	if m := util.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass); m != nil {
		p.Mailer = m
	} else {
		log.Println("SMTP not configured, email notifications disabled")
	}
	return p
}

func main() {
	cfg := config.LoadConfig()
	if cfg.JWTSecret == "" {
		log.Fatal("JWTSECRET must be set")
	}
	util.SetJWTSecret(cfg.JWTSecret)

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	if err := model.Migrate(db); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable, continuing without session cache: %v", err)
	}
	if err := util.InitGeoIP(cfg.GeoIPDBPath); err != nil {
		log.Printf("GeoIP lookups disabled: %v", err)
	}
	defer util.CloseGeoIP()

	util.SetSecurityLoggerDB(db)
	util.InitContactCacheFromEnv()

	janitor, err := util.StartSessionJanitor(db, util.DefaultJanitorSchedule)
	if err != nil {
		log.Fatalf("Error starting session janitor: %v", err)
	}
	defer janitor.Stop()

	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})
	endpoint.SetupRoutes(router, db, buildProviders(cfg, db))

	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
