package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/givepay-gobackend/internal/models"
)

// DonationsCollection is the collection holding donation documents.
const DonationsCollection = "donations"

// MongoStore persists donations in MongoDB. The client must be created with
// db.NewRegistry so amounts are stored as Decimal128.
type MongoStore struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewMongoStore(database *mongo.Database, timeout time.Duration) *MongoStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MongoStore{collection: database.Collection(DonationsCollection), timeout: timeout}
}

// EnsureIndexes creates the unique reference index the reconciliation relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_reference"),
		},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Printf("Failed to create donation indexes: %v", err)
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByReference(ctx context.Context, reference string) (*models.Donation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var donation models.Donation
	if err := s.collection.FindOne(ctx, bson.M{"reference": reference}).Decode(&donation); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		log.Printf("Failed to fetch donation %s: %v", reference, err)
		return nil, unavailable("find donation", err)
	}
	return &donation, nil
}

func (s *MongoStore) Insert(ctx context.Context, d *models.Donation) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	d.ID = primitive.NewObjectID().Hex()
	if _, err := s.collection.InsertOne(ctx, d); err != nil {
		d.ID = ""
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReference
		}
		log.Printf("Failed to save donation %s: %v", d.Reference, err)
		return unavailable("insert donation", err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, d *models.Donation, from models.Status) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	set := bson.M{
		"amount":     d.Amount,
		"status":     d.Status,
		"updated_at": d.UpdatedAt,
	}
	if d.Currency != "" {
		set["currency"] = d.Currency
	}
	if d.PaidAt != nil {
		set["paid_at"] = d.PaidAt
	}

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"reference": d.Reference, "status": from},
		bson.M{"$set": set},
	)
	if err != nil {
		log.Printf("Failed to update donation %s: %v", d.Reference, err)
		return unavailable("update donation", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SumAmounts(ctx context.Context, status models.Status) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipeline := mongo.Pipeline{}
	if status != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"status": status}}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$group", Value: bson.M{
		"_id":   nil,
		"total": bson.M{"$sum": "$amount"},
	}}})

	cur, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		log.Printf("Failed to aggregate donation total: %v", err)
		return decimal.Zero, unavailable("sum donations", err)
	}
	defer cur.Close(ctx)

	var result []struct {
		Total decimal.Decimal `bson:"total"`
	}
	if err := cur.All(ctx, &result); err != nil {
		log.Printf("Failed to decode donation total: %v", err)
		return decimal.Zero, unavailable("sum donations", err)
	}
	if len(result) == 0 {
		return decimal.Zero, nil
	}
	return result[0].Total, nil
}

func (s *MongoStore) List(ctx context.Context) ([]models.Donation, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (s *MongoStore) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]models.Donation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, bson.M{
		"status":     models.StatusPending,
		"created_at": bson.M{"$lt": olderThan},
	}, opts)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Donation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("Failed to fetch donations: %v", err)
		return nil, unavailable("list donations", err)
	}
	defer cur.Close(ctx)

	donations := []models.Donation{}
	if err := cur.All(ctx, &donations); err != nil {
		log.Printf("Failed to decode donations: %v", err)
		return nil, unavailable("list donations", err)
	}
	return donations, nil
}
