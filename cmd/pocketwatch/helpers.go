package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/pocketwatch/internal/config"
	"github.com/Veraticus/pocketwatch/internal/service"
	"github.com/Veraticus/pocketwatch/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/pocketwatch/pocketwatch.db"
	}

	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// parseAmount parses a positive or negative decimal money value.
func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

// parseDate parses a YYYY-MM-DD date. An empty string returns a zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return date, nil
}

// parseDatePtr parses a YYYY-MM-DD date into a pointer, nil when empty.
func parseDatePtr(s string) (*time.Time, error) {
	date, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, nil
	}
	return &date, nil
}
