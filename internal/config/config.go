package config

import (
	"os"
	"strconv"
	"time"
)

// Get returns the value of an environment variable or a fallback.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetInt reads an integer environment variable or returns a fallback.
func GetInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// GetFloat reads a float environment variable or returns a fallback.
func GetFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// GetBool reads a boolean environment variable or returns a fallback.
func GetBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Config is the process-wide configuration record. It is loaded once at
// startup and treated as immutable afterwards.
type Config struct {
	Port        string
	DBPath      string
	DatabaseURL string
	RedisAddr   string
	SeedPath    string
	LogDir      string

	AverageSpeedKmh         int
	DefaultAmbientTemp      float64
	DefaultInitialCargoTemp float64
	DefaultDepotLat         float64
	DefaultDepotLon         float64
	DefaultDepartureTime    string

	VehicleFixedCost     int64
	TempViolationPenalty int64
	LateDeliveryPenalty  int64
	DistanceCostPerKm    int64
	InfeasibleCost       int64

	SolverTimeLimitDefault int
	SolverTimeLimitMax     int

	EnableLaborDimension     bool
	DriverDailyLimitMinutes  int
	DriverWeeklyLimitMinutes int

	WorkerCount      int
	ProgressInterval time.Duration
}

// Load reads all recognized options from the environment, applying defaults.
func Load() Config {
	return Config{
		Port:        Get("PORT", "8080"),
		DBPath:      Get("DB_PATH", "data/dispatch.db"),
		DatabaseURL: Get("DATABASE_URL", ""),
		RedisAddr:   Get("REDIS_ADDR", ""),
		SeedPath:    Get("SEED_PATH", "data/seeds/dispatch.json"),
		LogDir:      Get("LOG_DIR", "logs"),

		AverageSpeedKmh:         GetInt("AVERAGE_SPEED_KMH", 30),
		DefaultAmbientTemp:      GetFloat("DEFAULT_AMBIENT_TEMPERATURE", 30.0),
		DefaultInitialCargoTemp: GetFloat("DEFAULT_INITIAL_VEHICLE_TEMP", -5.0),
		DefaultDepotLat:         GetFloat("DEFAULT_DEPOT_LATITUDE", 25.0330),
		DefaultDepotLon:         GetFloat("DEFAULT_DEPOT_LONGITUDE", 121.5654),
		DefaultDepartureTime:    Get("DEFAULT_DEPARTURE_TIME", "06:00"),

		VehicleFixedCost:     int64(GetInt("VEHICLE_FIXED_COST", 50000)),
		TempViolationPenalty: int64(GetInt("TEMP_VIOLATION_PENALTY", 100000)),
		LateDeliveryPenalty:  int64(GetInt("LATE_DELIVERY_PENALTY", 1000)),
		DistanceCostPerKm:    int64(GetInt("DISTANCE_COST_PER_KM", 10)),
		InfeasibleCost:       int64(GetInt("INFEASIBLE_COST", 10000000)),

		SolverTimeLimitDefault: GetInt("SOLVER_TIME_LIMIT_DEFAULT", 300),
		SolverTimeLimitMax:     GetInt("SOLVER_TIME_LIMIT_MAX", 900),

		EnableLaborDimension:     GetBool("ENABLE_LABOR_DIMENSION", false),
		DriverDailyLimitMinutes:  GetInt("DRIVER_DAILY_LIMIT_MINUTES", 600),
		DriverWeeklyLimitMinutes: GetInt("DRIVER_WEEKLY_LIMIT_MINUTES", 2400),

		WorkerCount:      GetInt("WORKER_COUNT", 2),
		ProgressInterval: time.Duration(GetInt("PROGRESS_INTERVAL_SECONDS", 10)) * time.Second,
	}
}
