package main // Entry point package

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/PouryDev/session-booking/internal/booking"
	"github.com/PouryDev/session-booking/internal/cache"
	"github.com/PouryDev/session-booking/internal/config"
	"github.com/PouryDev/session-booking/internal/database"
	"github.com/PouryDev/session-booking/internal/handler"
	"github.com/PouryDev/session-booking/internal/queue"
	"github.com/PouryDev/session-booking/internal/repository"
	"github.com/PouryDev/session-booking/internal/router"
	queue_publisher "github.com/PouryDev/session-booking/internal/service"
	"github.com/PouryDev/session-booking/internal/sweeper"
)

func main() {
	cfg := config.Load() // Load environment config (reads .env when present)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional; a nil client disables the availability cache.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Print("redis unavailable; availability cache disabled")
	}
	availability := cache.NewAvailability(rdb, time.Duration(cfg.CacheTTLSec)*time.Second)

	sessions := repository.NewSessionRepo(db)
	reservations := repository.NewReservationRepo(db)

	manager := booking.NewManager(
		sessions,
		reservations,
		booking.NoopOrderService{}, // cafe module is deployed separately
		availability,
		time.Duration(cfg.HoldTTLMin)*time.Minute,
	)
	coordinator := booking.NewCoordinator(sessions, reservations, availability, queue_publisher.PublishReservationConfirmed)

	// React to payment gateway outcomes delivered over the broker.
	consumer := queue.NewPaymentConsumer(coordinator)
	go func() {
		if err := consumer.Start(); err != nil {
			log.Printf("payment-consumer: stopped: %v", err)
		}
	}()

	// Periodic sweep so idle sessions release stale holds too.
	sched, err := sweeper.Start(manager, time.Duration(cfg.SweepIntervalMin)*time.Minute)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	defer func() { _ = sched.Shutdown() }()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterReservations(e, handler.NewReservationHandler(manager))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
