package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/markjakearzadon/givepay-gobackend/internal/db"
)

// Database-backed tests are opt-in: set MONGO_TEST_URI and/or POSTGRES_TEST_DSN.

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("mongo integration tests are disabled; set MONGO_TEST_URI to enable")
	}
	ctx := context.Background()
	client, err := db.ConnectMongo(ctx, uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	n := 0
	runStoreContract(t, func(t *testing.T) Store {
		n++
		database := client.Database(fmt.Sprintf("donations_test_%d_%d", time.Now().UnixNano(), n))
		t.Cleanup(func() { _ = database.Drop(context.Background()) })

		s := NewMongoStore(database, 5*time.Second)
		if err := s.EnsureIndexes(ctx); err != nil {
			t.Fatalf("ensure indexes: %v", err)
		}
		return s
	})
}

func TestMongoStoreAmountIsDecimal128(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("mongo integration tests are disabled; set MONGO_TEST_URI to enable")
	}
	ctx := context.Background()
	client, err := db.ConnectMongo(ctx, uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect(ctx)

	database := client.Database(fmt.Sprintf("donations_test_raw_%d", time.Now().UnixNano()))
	defer database.Drop(ctx)

	s := NewMongoStore(database, 5*time.Second)
	if err := s.Insert(ctx, newDonation("R1", "1500.00", "successful", time.Now())); err != nil {
		t.Fatalf("insert: %v", err)
	}
	raw, err := database.Collection(DonationsCollection).FindOne(ctx, bson.M{"reference": "R1"}).Raw()
	if err != nil {
		t.Fatalf("find raw: %v", err)
	}
	if typ := raw.Lookup("amount").Type; typ != bson.TypeDecimal128 {
		t.Fatalf("amount stored as %v, want Decimal128", typ)
	}
}

func TestGormStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("postgres integration tests are disabled; set POSTGRES_TEST_DSN to enable")
	}
	gdb, err := db.OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	runStoreContract(t, func(t *testing.T) Store {
		if err := gdb.Exec("DROP TABLE IF EXISTS donations").Error; err != nil {
			t.Fatalf("drop: %v", err)
		}
		s := NewGormStore(gdb, 5*time.Second)
		if err := s.Migrate(); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return s
	})
}
