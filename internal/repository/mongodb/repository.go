package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dairyfeed/internal/domain/models"
)

// Repository archives daily feed reports.
type Repository interface {
	SaveFeedReport(ctx context.Context, report models.FeedReport) error
	FindFeedReport(ctx context.Context, day time.Time) (*models.FeedReport, error)
}

// MongoDBRepository implements Repository on a single collection keyed by report date.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository connects to MongoDB and verifies the connection.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "feed_reports",
	}, nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// SaveFeedReport stores the report, replacing an earlier archive of the same day.
func (r *MongoDBRepository) SaveFeedReport(ctx context.Context, report models.FeedReport) error {
	filter := bson.M{"date": report.Date}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection().ReplaceOne(ctx, filter, report, opts); err != nil {
		return fmt.Errorf("failed to upsert feed report: %w", err)
	}
	return nil
}

// FindFeedReport loads the archived report of a day. It returns nil when none exists.
func (r *MongoDBRepository) FindFeedReport(ctx context.Context, day time.Time) (*models.FeedReport, error) {
	var report models.FeedReport
	err := r.collection().FindOne(ctx, bson.M{"date": day}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load feed report: %w", err)
	}
	return &report, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
