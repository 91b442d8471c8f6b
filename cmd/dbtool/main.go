// Command dbtool initializes the dispatch schema and seeds fleet data
// outside the server process. With DATABASE_URL set it applies the Postgres
// schema variant to an external store; otherwise it prepares the local
// SQLite file and loads the seed JSON.
package main

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"coldchain-dispatch-service/internal/adapters/repositories"
	"coldchain-dispatch-service/internal/config"
	"coldchain-dispatch-service/internal/platform/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL != "" {
		initPostgres(databaseURL)
		return
	}

	dbPath := config.Get("DB_PATH", "data/dispatch.db")
	seedPath := config.Get("SEED_PATH", "data/seeds/dispatch.json")
	initSQLite(dbPath, seedPath)
}

func initPostgres(databaseURL string) {
	conn, err := db.OpenPostgres(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Println("Initializing postgres schema...")
	if err := repositories.InitSchemaPostgres(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")
	// Seeding targets the sqlite store; point the server at this database
	// and load data through its API instead.
	log.Println("Skipping seed step for postgres target.")
}

func initSQLite(dbPath, seedPath string) {
	conn, err := db.OpenSQLite(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	log.Println("Seeding database...")
	if err := repositories.SeedFromJSON(conn, seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}
