package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"audiocast/internal/domain"
)

type playEventDoc struct {
	TrackID  string `bson:"trackId"`
	Title    string `bson:"title"`
	Artist   string `bson:"artist"`
	Provider string `bson:"provider"`
	HiRes    bool   `bson:"hiRes"`
	PlayedAt int64  `bson:"playedAt"`
}

// PlayHistoryRepository appends one document per successful stream delivery.
type PlayHistoryRepository struct {
	collection *mongo.Collection
}

func NewPlayHistoryRepository(client *mongo.Client, dbName string) *PlayHistoryRepository {
	return &PlayHistoryRepository{collection: client.Database(dbName).Collection("play_history")}
}

func (r *PlayHistoryRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "playedAt", Value: -1}},
	})
	return err
}

func (r *PlayHistoryRepository) Record(ctx context.Context, ev domain.PlayEvent) error {
	if ev.PlayedAt.IsZero() {
		ev.PlayedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, playEventDoc{
		TrackID:  ev.TrackID,
		Title:    ev.Title,
		Artist:   ev.Artist,
		Provider: ev.Provider,
		HiRes:    ev.HiRes,
		PlayedAt: ev.PlayedAt.Unix(),
	})
	return err
}

func (r *PlayHistoryRepository) ListRecent(ctx context.Context, limit int) ([]domain.PlayEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "playedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []playEventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	events := make([]domain.PlayEvent, 0, len(docs))
	for _, doc := range docs {
		events = append(events, domain.PlayEvent{
			TrackID:  doc.TrackID,
			Title:    doc.Title,
			Artist:   doc.Artist,
			Provider: doc.Provider,
			HiRes:    doc.HiRes,
			PlayedAt: time.Unix(doc.PlayedAt, 0).UTC(),
		})
	}
	return events, nil
}
