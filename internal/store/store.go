// Package store is the record store behind tasks, chats and derived heatmap
// records. Records are opaque JSON documents addressed by (collection, key).
// Writes are whole-record overwrites; there are no transactions.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("record not found")

type Store interface {
	Write(ctx context.Context, collection, key string, data []byte) error
	// Read returns ErrNotFound when the record does not exist.
	Read(ctx context.Context, collection, key string) ([]byte, error)
	// ListKeys returns the keys in collection starting with prefix, sorted ascending.
	ListKeys(ctx context.Context, collection, prefix string) ([]string, error)
	Close() error
}

// Collection names.
func Tasks(slug string) string { return "tasks/" + slug }
func Chats(slug string) string { return "chats/" + slug }
func Grass(slug string) string { return "grass/" + slug }

const IDs = "ids"

func PutJSON(ctx context.Context, s Store, collection, key string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	return s.Write(ctx, collection, key, b)
}

func GetJSON(ctx context.Context, s Store, collection, key string, out any) error {
	b, err := s.Read(ctx, collection, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	return nil
}

func validName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("empty collection or key")
	}
	if strings.Contains(s, "..") || strings.ContainsAny(s, `\`+"\x00") {
		return fmt.Errorf("invalid name %q", s)
	}
	return nil
}

type Config struct {
	Driver  string
	DSN     string
	DataDir string
}

// Open builds the store selected by cfg.Driver: file (default), sqlite, postgres or memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return NewFileStore(cfg.DataDir)
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.DataDir + "/records.db"
		}
		return NewSQLiteStore(dsn)
	case "postgres", "pg":
		return NewPgStore(ctx, cfg.DSN)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
