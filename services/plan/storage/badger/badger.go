// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger wraps BadgerDB with the narrow get/set surface the plan
// service needs. BadgerDB is embedded: no network call, no availability
// dependency, which is the right trade for a per-deployment tool corpus.
package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// DB owns one BadgerDB instance. The caller opens it at startup and
// closes it on shutdown; consumers (e.g. the retrieval tool) never manage
// the lifecycle themselves.
//
// Thread Safety: safe for concurrent use. BadgerDB transactions are
// per-goroutine.
type DB struct {
	db     *dgbadger.DB
	logger *slog.Logger
}

// Open opens (or creates) a BadgerDB at dir. An empty dir opens an
// in-memory instance, which is what tests and the one-shot CLI use.
func Open(dir string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := dgbadger.DefaultOptions(dir)
	opts = opts.WithLogger(nil) // badger's own logger is too chatty for slog setups
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: opening %q: %w", dir, err)
	}

	logger.Debug("badger store opened",
		slog.String("dir", dir),
		slog.Bool("in_memory", dir == ""),
	)
	return &DB{db: db, logger: logger}, nil
}

// Close releases the underlying store.
func (d *DB) Close() error {
	return d.db.Close()
}

// Set stores key → val. A ttl of 0 stores without expiry; otherwise
// BadgerDB's native GC enforces it and an expired key reads as a miss.
func (d *DB) Set(key, val []byte, ttl time.Duration) error {
	err := d.db.Update(func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry(key, val)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger: set %q: %w", key, err)
	}
	return nil
}

// Get retrieves the value for key. Returns (nil, nil) on miss; absent
// and TTL-expired keys are indistinguishable to callers.
func (d *DB) Get(key []byte) ([]byte, error) {
	var out []byte
	err := d.db.View(func(txn *dgbadger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("badger: get %q: %w", key, err)
	}
	return out, nil
}
