package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/wavecresthq/wavecrest-backend/api/routes"
	"github.com/wavecresthq/wavecrest-backend/internal/availability"
	"github.com/wavecresthq/wavecrest-backend/internal/bookings"
	"github.com/wavecresthq/wavecrest-backend/internal/customers"
	"github.com/wavecresthq/wavecrest-backend/internal/equipment"
	"github.com/wavecresthq/wavecrest-backend/internal/instructors"
	"github.com/wavecresthq/wavecrest-backend/internal/lessons"
	"github.com/wavecresthq/wavecrest-backend/internal/payments"
	"github.com/wavecresthq/wavecrest-backend/internal/rentals"
	"github.com/wavecresthq/wavecrest-backend/internal/reservations"
	"github.com/wavecresthq/wavecrest-backend/pkg/config"
	"github.com/wavecresthq/wavecrest-backend/pkg/db"
	"github.com/wavecresthq/wavecrest-backend/pkg/logger"
	"github.com/wavecresthq/wavecrest-backend/pkg/migrate"
	"github.com/wavecresthq/wavecrest-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	rentalRepo := rentals.NewRepository(conn)
	bookingRepo := bookings.NewRepository(conn)
	equipmentRepo := equipment.NewRepository(conn)
	ledger := availability.NewLedger(conn)

	equipmentService, err := equipment.NewService(equipmentRepo, dbClient, ledger)
	if err != nil {
		logg.Error(context.Background(), "failed to create equipment service", err)
		os.Exit(1)
	}
	rentalService, err := rentals.NewService(rentalRepo, equipmentRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create rentals service", err)
		os.Exit(1)
	}
	bookingService, err := bookings.NewService(bookingRepo, lessons.NewRepository(conn), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create bookings service", err)
		os.Exit(1)
	}
	reservationService, err := reservations.NewService(
		rentalRepo,
		bookingRepo,
		equipmentRepo,
		customers.NewRepository(conn),
		instructors.NewRepository(conn),
		lessons.NewRepository(conn),
		payments.NewRepository(conn),
		dbClient,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservations service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Ledger:       ledger,
			Reservations: reservationService,
			Rentals:      rentalService,
			Bookings:     bookingService,
			Equipment:    equipmentService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
