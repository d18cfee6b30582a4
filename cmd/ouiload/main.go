package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/jarvis-lab/netguard/internal/adapters/fingerprint"
)

func main() {
	// Default to the same location the daemon reads from
	defaultDB := "./oui.db"
	if home, err := os.UserHomeDir(); err == nil {
		defaultDB = filepath.Join(home, ".netguard", "oui.db")
	}

	srcFile := flag.String("src", "./oui.txt", "Path to IEEE OUI registry dump")
	dbPath := flag.String("db", defaultDB, "Path to OUI vendor database")
	flag.Parse()

	log.Println("=== OUI Registry Loader ===")
	log.Printf("Source: %s", *srcFile)
	log.Printf("Database: %s", *dbPath)

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	entries, err := fingerprint.ParseOUIFile(*srcFile)
	if err != nil {
		log.Fatalf("Failed to parse OUI file: %v", err)
	}
	log.Printf("Parsed %d entries", len(entries))

	db, err := fingerprint.NewOUIDatabase(*dbPath, 1024)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.BulkInsertOUIs(ctx, entries); err != nil {
		log.Fatalf("Failed to load entries: %v", err)
	}

	// Show stats
	stats, _ := db.GetStats(ctx)
	log.Printf("✓ Database now contains %d vendors", stats.TotalEntries)
}
