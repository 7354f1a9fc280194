package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utakatalp/cup-simulator/internal/montecarlo"
)

// MongoStore keeps one document per batch.
type MongoStore struct {
	Client  *mongo.Client
	Batches *mongo.Collection
	now     func() time.Time
}

var _ Interface = (*MongoStore)(nil)

// batchDocument is the stored shape. The seed is kept as a decimal string
// since BSON has no unsigned 64-bit integer.
type batchDocument struct {
	ID         string                `bson:"_id"`
	Tournament string                `bson:"tournament"`
	Runs       int                   `bson:"runs"`
	Seed       string                `bson:"seed"`
	Rounds     int                   `bson:"rounds"`
	ElapsedNS  int64                 `bson:"elapsed_ns"`
	CreatedAt  time.Time             `bson:"created_at"`
	Teams      []montecarlo.TeamOdds `bson:"teams"`
}

// NewMongoStore connects to uri and uses the batches collection of dbName.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	if dbName == "" {
		return nil, fmt.Errorf("mongo database name cannot be empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return &MongoStore{
		Client:  client,
		Batches: client.Database(dbName).Collection("batches"),
		now:     time.Now,
	}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.Client.Disconnect(context.Background())
}

// Migrate makes sure the latest-batch lookup is indexed.
func (s *MongoStore) Migrate(ctx context.Context) error {
	_, err := s.Batches.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tournament", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("creating batches index: %w", err)
	}
	return nil
}

// SaveBatch inserts the batch and returns its id.
func (s *MongoStore) SaveBatch(ctx context.Context, res *montecarlo.Result) (string, error) {
	doc := batchDocument{
		ID:         uuid.NewString(),
		Tournament: res.Tournament,
		Runs:       res.Runs,
		Seed:       strconv.FormatUint(res.Seed, 10),
		Rounds:     res.Rounds,
		ElapsedNS:  int64(res.Elapsed),
		CreatedAt:  s.now().UTC(),
		Teams:      res.Teams,
	}
	if _, err := s.Batches.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("inserting batch: %w", err)
	}
	return doc.ID, nil
}

// LoadBatch fetches a batch by id.
func (s *MongoStore) LoadBatch(ctx context.Context, id string) (*Batch, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}}, options.FindOne())
}

// LatestBatch fetches the most recent batch of a tournament.
func (s *MongoStore) LatestBatch(ctx context.Context, tournament string) (*Batch, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return s.findOne(ctx, bson.D{{Key: "tournament", Value: tournament}}, opts)
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.D, opts *options.FindOneOptions) (*Batch, error) {
	var doc batchDocument
	err := s.Batches.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching batch: %w", err)
	}

	seed, err := strconv.ParseUint(doc.Seed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing seed of batch %s: %w", doc.ID, err)
	}
	res := &montecarlo.Result{
		Tournament: doc.Tournament,
		Runs:       doc.Runs,
		Seed:       seed,
		Rounds:     doc.Rounds,
		Elapsed:    time.Duration(doc.ElapsedNS),
	}
	wins := make(map[string]int, len(doc.Teams))
	strengths := make(map[string]float64, len(doc.Teams))
	reached := make(map[string][]int, len(doc.Teams))
	for _, o := range doc.Teams {
		wins[o.Team] = o.Wins
		strengths[o.Team] = o.Strength
		reached[o.Team] = o.Reached
	}
	rebuild(res, wins, strengths, reached)
	return &Batch{ID: doc.ID, CreatedAt: doc.CreatedAt, Result: res}, nil
}
