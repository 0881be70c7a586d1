package main // Entry point package

import (
    "context"
    "log"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/openbooking/escrow-core/internal/compliance"
    "github.com/openbooking/escrow-core/internal/config"
    "github.com/openbooking/escrow-core/internal/database"
    "github.com/openbooking/escrow-core/internal/escrow"
    "github.com/openbooking/escrow-core/internal/handler"
    "github.com/openbooking/escrow-core/internal/middleware"
    "github.com/openbooking/escrow-core/internal/payment"
    "github.com/openbooking/escrow-core/internal/queue"
    "github.com/openbooking/escrow-core/internal/repository"
    "github.com/openbooking/escrow-core/internal/router"
    queuepublisher "github.com/openbooking/escrow-core/internal/service"
)

func main() {
    // Load a .env file when present; real deployments set variables
    // through the environment and have no such file.
    _ = godotenv.Load()

    cfg := config.Load() // Load environment config

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: open failed: %v", err)
    }
    defer db.Close()

    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    if err := database.EnsureSchema(ctx, db); err != nil {
        cancel()
        log.Fatalf("database: schema migration failed: %v", err)
    }
    cancel()

    store := repository.NewMySQLStore(db)

    // Per-booking locking degrades to an in-process mutex when Redis is
    // unreachable. That is safe for a single instance; multi-instance
    // deployments require Redis.
    var locker escrow.BookingLocker
    rdb := config.NewRedisClient()
    if rdb != nil {
        locker = escrow.NewRedisLocker(rdb, time.Duration(cfg.LockTTLSeconds)*time.Second)
    } else {
        log.Println("redis: unavailable, falling back to in-process booking locks")
        locker = escrow.NewLocalLocker()
    }

    events := queuepublisher.NewPublisher()
    escrowSvc := escrow.NewService(store, locker, events)
    gate := compliance.NewGate(store, cfg.AMLDailyLimitCents)
    paymentSvc := payment.NewService(store, gate, cfg.FiatFeeBasisPoints)

    // The transition consumer reconnects on its own; a returned error
    // means it gave up permanently.
    go func() {
        if err := queue.StartTransitionConsumer(); err != nil {
            log.Printf("rabbitmq: transition consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    limiter := middleware.RateLimit(config.LoadRateLimitConfig(), rdb)
    router.RegisterRoutes(e)
    router.RegisterBookings(e, handler.NewBookingHandler(escrowSvc), cfg.JWTSecret)
    router.RegisterPayments(e, handler.NewPaymentHandler(paymentSvc, escrowSvc), limiter)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
