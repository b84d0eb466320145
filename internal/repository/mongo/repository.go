package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"audiocast/internal/domain"
)

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type metadataDoc struct {
	ID          string   `bson:"_id"`
	Title       string   `bson:"title"`
	Artists     []string `bson:"artists,omitempty"`
	Album       string   `bson:"album,omitempty"`
	Year        int      `bson:"year,omitempty"`
	TrackNumber int      `bson:"trackNumber,omitempty"`
	TotalTracks int      `bson:"totalTracks,omitempty"`
	CoverURL    string   `bson:"coverUrl,omitempty"`
	HiRes       bool     `bson:"hiRes,omitempty"`
	UpdatedAt   int64    `bson:"updatedAt"`
}

// MetadataRepository persists the best-effort metadata assembled during
// resolution, keyed by the raw track reference.
type MetadataRepository struct {
	collection *mongo.Collection
}

func NewMetadataRepository(client *mongo.Client, dbName string) *MetadataRepository {
	return &MetadataRepository{collection: client.Database(dbName).Collection("track_metadata")}
}

func (r *MetadataRepository) Upsert(ctx context.Context, trackID string, meta domain.Metadata) error {
	update := bson.M{
		"$set": bson.M{
			"title":       meta.Title,
			"artists":     meta.Artists,
			"album":       meta.Album,
			"year":        meta.Year,
			"trackNumber": meta.TrackNumber,
			"totalTracks": meta.TotalTracks,
			"coverUrl":    meta.CoverURL,
			"hiRes":       meta.HiRes,
			"updatedAt":   time.Now().Unix(),
		},
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": trackID},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *MetadataRepository) Get(ctx context.Context, trackID string) (domain.Metadata, error) {
	var doc metadataDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": trackID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Metadata{}, domain.ErrNotFound
		}
		return domain.Metadata{}, err
	}
	return domain.Metadata{
		Title:       doc.Title,
		Artists:     doc.Artists,
		Album:       doc.Album,
		Year:        doc.Year,
		TrackNumber: doc.TrackNumber,
		TotalTracks: doc.TotalTracks,
		CoverURL:    doc.CoverURL,
		HiRes:       doc.HiRes,
	}, nil
}
