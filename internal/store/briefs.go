package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ayush/research-brief-generator/internal/models"
)

// BriefStore composes the backing stores into the persistence collaborator
// the pipeline consumes: briefs live in MongoDB, research contexts in
// PostgreSQL, and a rendered JSON artifact of each brief in object storage.
type BriefStore struct {
	briefs   *MongoStore
	contexts *PostgresStore
	files    *MinioStore // optional; artifact upload is skipped when nil
}

func NewBriefStore(briefs *MongoStore, contexts *PostgresStore, files *MinioStore) *BriefStore {
	return &BriefStore{briefs: briefs, contexts: contexts, files: files}
}

// ArtifactKey is the object key of a brief's rendered JSON artifact.
func ArtifactKey(userID, briefID string) string {
	return fmt.Sprintf("%s/%s.json", userID, briefID)
}

// SaveBrief persists the brief and uploads its JSON artifact. Artifact
// upload failure is logged, not returned; the database record is the
// source of truth.
func (s *BriefStore) SaveBrief(ctx context.Context, brief *models.FinalBrief, userID string) error {
	if err := s.briefs.Insert(ctx, brief, userID); err != nil {
		return err
	}

	if s.files != nil {
		data, err := json.MarshalIndent(brief, "", "  ")
		if err == nil {
			err = s.files.Upload(ctx, ArtifactKey(userID, brief.BriefID), data, "application/json")
		}
		if err != nil {
			log.Printf("brief artifact upload error for %s: %v", brief.BriefID, err)
		}
	}
	return nil
}

func (s *BriefStore) GetRecentBriefs(ctx context.Context, userID string, limit int) ([]models.FinalBrief, error) {
	return s.briefs.ListRecent(ctx, userID, limit)
}

func (s *BriefStore) GetUserContext(ctx context.Context, userID string) (*models.ContextSummary, error) {
	return s.contexts.GetUserContext(ctx, userID)
}

func (s *BriefStore) UpdateUserContext(ctx context.Context, userID, topic string, depth int) error {
	return s.contexts.UpdateUserContext(ctx, userID, topic, depth)
}
