// Package main implements a mock Catalog Store (Supabase PostgREST) server
// for local development.
package main

import (
	"embed"
	"net/http"
	"os"

	"github.com/thomas/mayhem-terminal-go/internal/logging"
)

//go:embed testdata/*.json
var testdataFS embed.FS

func main() {
	addr := getEnv("MOCKSTORE_ADDR", ":18080")
	logger := logging.New(getEnv("LOG_LEVEL", "info"), getEnv("LOG_FORMAT", "text")).WithPrefix("mockstore")

	t, err := loadTables(testdataFS)
	if err != nil {
		logger.Fatal("Failed to load testdata", "err", err)
	}
	for table, n := range t.counts() {
		logger.Info("Loaded table", "table", table, "rows", n)
	}

	s := &server{
		tables: t,
		logger: logger,
		apiKey: os.Getenv("MOCKSTORE_API_KEY"),
	}

	logger.Info("Mock catalog store listening", "addr", addr)
	if err := http.ListenAndServe(addr, newRouter(s)); err != nil {
		logger.Fatal("Server error", "err", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
