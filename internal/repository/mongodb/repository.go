package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/medstock/internal/domain/models"
	"github.com/mamadbah2/medstock/internal/repository/snapshot"
	"github.com/mamadbah2/medstock/internal/service/ledger"
)

const (
	reportsCollection   = "daily_reports"
	snapshotsCollection = "ledger_snapshots"
	snapshotDocumentID  = "inventory"
)

// Repository defines the interface for report storage.
type Repository interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
	LatestDailyReport(ctx context.Context) (models.DailyReport, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{client: client, dbName: dbName}, nil
}

// SaveDailyReport saves a daily report to the database.
func (r *MongoDBRepository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	collection := r.client.Database(r.dbName).Collection(reportsCollection)
	if _, err := collection.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to insert daily report: %w", err)
	}
	return nil
}

// LatestDailyReport returns the most recently generated daily report.
func (r *MongoDBRepository) LatestDailyReport(ctx context.Context) (models.DailyReport, error) {
	collection := r.client.Database(r.dbName).Collection(reportsCollection)
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var report models.DailyReport
	if err := collection.FindOne(ctx, bson.D{}, opts).Decode(&report); err != nil {
		return models.DailyReport{}, fmt.Errorf("failed to load latest daily report: %w", err)
	}
	return report, nil
}

// Snapshots returns a ledger snapshot store backed by this database.
func (r *MongoDBRepository) Snapshots() *SnapshotStore {
	return &SnapshotStore{collection: r.client.Database(r.dbName).Collection(snapshotsCollection)}
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// SnapshotStore keeps the whole ledger as one JSON payload document, replaced on every save.
type SnapshotStore struct {
	collection *mongo.Collection
}

type snapshotDocument struct {
	ID        string    `bson:"_id"`
	UpdatedAt time.Time `bson:"updated_at"`
	Records   int       `bson:"records"`
	Payload   []byte    `bson:"payload"`
}

// Load fetches and decodes the stored snapshot.
func (s *SnapshotStore) Load(ctx context.Context) (models.Snapshot, error) {
	var doc snapshotDocument
	err := s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: snapshotDocumentID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Snapshot{}, ledger.ErrSnapshotNotFound
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to load ledger snapshot: %w", err)
	}
	return snapshot.Decode(doc.Payload)
}

// Save replaces the stored snapshot document in a single write.
func (s *SnapshotStore) Save(ctx context.Context, snap models.Snapshot) error {
	payload, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}

	doc := snapshotDocument{
		ID:        snapshotDocumentID,
		UpdatedAt: snap.UpdatedAt,
		Records:   len(snap.Medicines),
		Payload:   payload,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.D{{Key: "_id", Value: snapshotDocumentID}}, doc, opts); err != nil {
		return fmt.Errorf("failed to save ledger snapshot: %w", err)
	}
	return nil
}
