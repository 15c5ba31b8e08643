package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"hotelhub-linencount/internal/config"

	_ "github.com/lib/pq"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <migration_file.sql>", os.Args[0])
	}

	sqlContent, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read migration file: %v", err)
	}

	cfg := config.Load()
	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Cannot open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	statements := strings.Split(string(sqlContent), ";")
	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}
		fmt.Printf("Executing statement %d/%d...\n", i+1, len(statements))
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to execute statement %d: %v", i+1, err)
		}
	}

	fmt.Println("Migration completed successfully")
}
