package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/research-brief-generator/internal/models"
)

// briefDoc wraps a FinalBrief with its owning user for storage.
type briefDoc struct {
	UserID string            `bson:"user_id"`
	Brief  models.FinalBrief `bson:",inline"`
}

// MongoStore handles research brief CRUD in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("briefs")}
}

func (s *MongoStore) Insert(ctx context.Context, brief *models.FinalBrief, userID string) error {
	_, err := s.col.InsertOne(ctx, briefDoc{UserID: userID, Brief: *brief})
	if err != nil {
		return fmt.Errorf("mongo insert: %w", err)
	}
	return nil
}

// ListRecent returns up to limit briefs for a user, newest first.
func (s *MongoStore) ListRecent(ctx context.Context, userID string, limit int) ([]models.FinalBrief, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "generated_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []briefDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	briefs := make([]models.FinalBrief, len(docs))
	for i, d := range docs {
		briefs[i] = d.Brief
	}
	return briefs, nil
}

func (s *MongoStore) GetByBriefID(ctx context.Context, briefID string) (*models.FinalBrief, error) {
	var doc briefDoc
	if err := s.col.FindOne(ctx, bson.M{"brief_id": briefID}).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc.Brief, nil
}

// OwnerOf returns the user id that owns a brief.
func (s *MongoStore) OwnerOf(ctx context.Context, briefID string) (string, error) {
	var doc struct {
		UserID string `bson:"user_id"`
	}
	if err := s.col.FindOne(ctx, bson.M{"brief_id": briefID}).Decode(&doc); err != nil {
		return "", err
	}
	return doc.UserID, nil
}

func (s *MongoStore) Delete(ctx context.Context, briefID string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"brief_id": briefID})
	return err
}
