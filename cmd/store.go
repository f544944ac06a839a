package main

import (
	"context"
	"fmt"
	"log"

	"github.com/markjakearzadon/givepay-gobackend/internal/config"
	"github.com/markjakearzadon/givepay-gobackend/internal/db"
	"github.com/markjakearzadon/givepay-gobackend/internal/store"
)

// openStore connects the configured backend and prepares its schema. The
// returned func releases the connection.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("Error disconnecting from MongoDB: %v", err)
			}
		}
		s := store.NewMongoStore(client.Database(cfg.MongoDatabase), cfg.StoreTimeout)
		if err := s.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return s, closeFn, nil

	case config.DriverPostgres:
		gdb, err := db.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := gdb.DB(); err == nil {
				sqlDB.Close()
			}
		}
		s := store.NewGormStore(gdb, cfg.StoreTimeout)
		if err := s.Migrate(); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("failed to migrate donations table: %w", err)
		}
		return s, closeFn, nil

	case config.DriverMemory:
		log.Println("Using in-memory donation store; data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
