package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"coldchain-dispatch-service/internal/adapters/queue"
	"coldchain-dispatch-service/internal/adapters/repositories"
	"coldchain-dispatch-service/internal/api"
	"coldchain-dispatch-service/internal/config"
	"coldchain-dispatch-service/internal/platform/db"
	"coldchain-dispatch-service/internal/platform/obs"
	"coldchain-dispatch-service/internal/ports"
	"coldchain-dispatch-service/internal/solver"
	"coldchain-dispatch-service/internal/worker"
)

// graceSeconds pads each job's solver budget before the runner abandons it;
// the stale sweeper uses the same margin to detect dead workers.
const graceSeconds = 30

// main is the application composition root. It wires concrete adapters
// (SQLite store, memory or Redis queue) behind ports, starts the solver pool
// and the HTTP server, and shuts both down on SIGINT/SIGTERM.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := config.Load()

	logger, err := obs.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	conn, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	if err := initAndSeed(conn, cfg.SeedPath); err != nil {
		logger.Fatal("prepare database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tasks ports.TaskQueue
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer client.Close()
		tasks = queue.NewRedis(client, "")
		logger.Info("using redis task queue", zap.String("addr", cfg.RedisAddr))
	} else {
		tasks = queue.NewMemory(256)
		logger.Info("using in-process task queue")
	}

	jobs := repositories.NewSqliteJobRepository(conn)
	routes := repositories.NewSqliteRouteRepository(conn)
	vehicles := repositories.NewSqliteVehicleRepository(conn)
	shipments := repositories.NewSqliteShipmentRepository(conn)
	depots := repositories.NewSqliteDepotRepository(conn)
	plans := repositories.NewSqlitePlanRepository(conn)
	labor := repositories.NewSqliteLaborRepository(conn)

	cancels := worker.NewCancels()
	runner := worker.NewRunner(jobs, plans, vehicles, shipments, labor, cancels, worker.Config{
		Params: solver.Params{
			AverageSpeedKmh:      cfg.AverageSpeedKmh,
			VehicleFixedCost:     cfg.VehicleFixedCost,
			TempViolationPenalty: cfg.TempViolationPenalty,
			LateDeliveryPenalty:  cfg.LateDeliveryPenalty,
			DistanceCostPerKm:    cfg.DistanceCostPerKm,
			InfeasibleCost:       cfg.InfeasibleCost,
			SpanCoeff:            solver.DefaultSpanCoeff,
			EnableLabor:          cfg.EnableLaborDimension,
		},
		GraceSeconds:     graceSeconds,
		ProgressInterval: cfg.ProgressInterval,
		DailyLimitMin:    cfg.DriverDailyLimitMinutes,
		WeeklyLimitMin:   cfg.DriverWeeklyLimitMinutes,
	}, logger)

	pool := worker.NewPool(tasks, runner, cfg.WorkerCount, logger)
	pool.Start(ctx)

	orch := worker.NewOrchestrator([]worker.CronWorker{
		worker.NewStaleJobSweeper(jobs, graceSeconds, logger),
	}, logger)
	cronRunner, err := orch.Start(ctx)
	if err != nil {
		logger.Fatal("start maintenance workers", zap.Error(err))
	}

	router := api.NewRouter(api.Deps{
		Jobs:      jobs,
		Routes:    routes,
		Vehicles:  vehicles,
		Shipments: shipments,
		Depots:    depots,
		Queue:     tasks,
		Cancels:   cancels,
		Cfg:       cfg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	cronRunner.Stop()
	pool.Wait()
	logger.Info("stopped")
}

// initAndSeed creates the schema and, when the store is still empty, loads
// the seed file. Seeding appends shipments, so a populated store is left
// untouched.
func initAndSeed(conn *sql.DB, seedPath string) error {
	if err := repositories.InitSchema(conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if seedPath == "" {
		return nil
	}
	if _, err := os.Stat(seedPath); err != nil {
		zap.L().Info("no seed file, skipping", zap.String("path", seedPath))
		return nil
	}

	var pending int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM shipments`).Scan(&pending); err != nil {
		return fmt.Errorf("init and seed: count shipments: %w", err)
	}
	if pending > 0 {
		return nil
	}

	if err := repositories.SeedFromJSON(conn, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	zap.L().Info("seeded database", zap.String("path", seedPath))
	return nil
}
