package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"

	"hotel-booking-engine/config"
	"hotel-booking-engine/controllers"
	"hotel-booking-engine/events"
	"hotel-booking-engine/obs"
	"hotel-booking-engine/routes"
	"hotel-booking-engine/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracer, err := obs.InitTracer("hotel-booking-engine", cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("❌ tracer init failed: %v", err)
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Database connect failed: %v", err)
	}
	log.Printf("✅ Database connection established (%s), migrations applied.", cfg.DBDriver)

	// Events are optional; without RabbitMQ bookings still work.
	var publisher events.Publisher
	if cfg.RabbitMQURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("⚠️  RabbitMQ unavailable, booking events disabled: %v", err)
		} else {
			defer amqpPub.Close()
			publisher = amqpPub
			log.Println("✅ RabbitMQ publisher ready")
		}
	}
	if cfg.JWTSecret == "" {
		log.Println("⚠️  JWT_SECRET not set; bearer tokens are read without verification")
	}

	// Initialize services
	settingsService := services.NewSettingsService(db)
	bookingService := services.NewBookingService(db, settingsService, publisher)
	rateService := services.NewRateService(db, settingsService)
	roomService := services.NewRoomService(db)
	roomTypeService := services.NewRoomTypeService(db)
	creditService := services.NewCreditService(db)

	router := routes.SetupRouter(routes.Controllers{
		Availability: controllers.NewAvailabilityController(bookingService),
		Bookings:     controllers.NewBookingController(bookingService),
		Rates:        controllers.NewRateController(rateService),
		Rooms:        controllers.NewRoomController(roomService),
		RoomTypes:    controllers.NewRoomTypeController(roomTypeService),
		Credits:      controllers.NewCreditController(creditService, bookingService),
		Settings:     controllers.NewSettingsController(settingsService),
	}, cfg.CorsOrigins, cfg.JWTSecret)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("⚠️  Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Printf("⚠️  tracer shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("✅ Server stopped gracefully")
}
