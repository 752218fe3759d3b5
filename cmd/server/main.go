package main // Entry point package

import (
    "context"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/tickethub/event-seat-reservation/internal/config"
    "github.com/tickethub/event-seat-reservation/internal/database"
    "github.com/tickethub/event-seat-reservation/internal/handler"
    "github.com/tickethub/event-seat-reservation/internal/idempotency"
    "github.com/tickethub/event-seat-reservation/internal/lock"
    "github.com/tickethub/event-seat-reservation/internal/queue"
    "github.com/tickethub/event-seat-reservation/internal/repository"
    "github.com/tickethub/event-seat-reservation/internal/router"
    "github.com/tickethub/event-seat-reservation/internal/service"
    "github.com/tickethub/event-seat-reservation/internal/worker"
)

func main() {
    _ = godotenv.Load() // optional .env for local development
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("open database: %v", err)
    }
    defer db.Close()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if err := database.Migrate(ctx, db); err != nil {
        log.Fatalf("migrate: %v", err)
    }

    // Redis backs the distributed locks and the idempotency guard.  A
    // nil client degrades both to single-instance behaviour.
    redisClient := config.NewRedisClient()
    if redisClient == nil {
        log.Println("redis unavailable, running without distributed locks and idempotency")
    }
    locks := lock.NewManager(redisClient)
    var idemStore idempotency.Store
    if redisClient != nil {
        idemStore = idempotency.NewRedisStore(redisClient)
    }

    users := repository.NewUserRepo(db)
    sessions := repository.NewSessionRepo(db)
    seats := repository.NewSeatRepo(db)
    reservations := repository.NewReservationRepo(db)
    sales := repository.NewSaleRepo(db)
    outbox := repository.NewOutboxRepo(db)

    reservationSvc := service.NewReservationService(db, sessions, seats, reservations, outbox, cfg.ReservationTTL)
    saleSvc := service.NewSaleService(db, sessions, seats, reservations, sales, outbox)

    publisher := queue.NewPublisher(queue.BrokerURL())
    defer publisher.Close()
    relaySvc := service.NewRelayService(outbox, publisher, cfg.RelayBatch, uint32(cfg.RelayMaxRetries), cfg.RelayBaseDelay, cfg.RelayMaxDelay, cfg.OutboxRetention)

    sweeper := worker.NewSweeper(reservationSvc, locks, cfg.SweepInterval, cfg.SweepLockTTL, cfg.SweepBatch)
    sweeper.Start(ctx)
    defer sweeper.Stop()

    relay := worker.NewRelay(relaySvc, locks, cfg.RelayInterval, cfg.CleanupInterval, cfg.RelayLockTTL)
    relay.Start(ctx)
    defer relay.Stop()

    go func() {
        if err := queue.StartEventConsumer(); err != nil {
            log.Printf("event-consumer: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true
    router.Register(e, router.Handlers{
        Auth:         handler.NewAuthHandler(cfg, users),
        Sessions:     handler.NewSessionHandler(sessions, seats),
        Reservations: handler.NewReservationHandler(reservationSvc),
        Sales:        handler.NewSaleHandler(saleSvc),
        Admin:        handler.NewAdminHandler(sessions, seats),
    }, router.Options{
        JWTSecret:       cfg.JWTSecret,
        IdemStore:       idemStore,
        IdemLeaseTTL:    cfg.IdemLeaseTTL,
        IdemResponseTTL: cfg.IdemResponseTTL,
    })

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    go func() {
        if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
            log.Printf("server stopped: %v", err)
            stop()
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.Printf("shutdown: %v", err)
    }
}
