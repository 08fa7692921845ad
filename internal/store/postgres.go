package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/research-brief-generator/internal/models"
)

// maxStoredTopics bounds a user's recorded topic history.
const maxStoredTopics = 10

// PostgresStore handles user accounts and research contexts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username   VARCHAR(50)  UNIQUE NOT NULL,
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ  DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS research_contexts (
			user_id          TEXT PRIMARY KEY,
			previous_topics  JSONB NOT NULL DEFAULT '[]',
			key_themes       JSONB NOT NULL DEFAULT '[]',
			preferred_depth  INT   NOT NULL DEFAULT 3,
			relevance_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_interaction TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	return err
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, email, hashedPassword string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password)
		 VALUES ($1, $2, $3)
		 RETURNING id, username, email, created_at`,
		username, email, hashedPassword,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserContext returns the stored research context, or (nil, nil) if the
// user has no context yet.
func (s *PostgresStore) GetUserContext(ctx context.Context, userID string) (*models.ContextSummary, error) {
	var (
		topicsRaw []byte
		themesRaw []byte
		summary   models.ContextSummary
		last      *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT previous_topics, key_themes, preferred_depth, relevance_score, last_interaction
		 FROM research_contexts WHERE user_id = $1`, userID,
	).Scan(&topicsRaw, &themesRaw, &summary.PreferredDepth, &summary.RelevanceScore, &last)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user context: %w", err)
	}
	if err := json.Unmarshal(topicsRaw, &summary.PreviousTopics); err != nil {
		return nil, fmt.Errorf("get user context: decode topics: %w", err)
	}
	if err := json.Unmarshal(themesRaw, &summary.KeyThemes); err != nil {
		return nil, fmt.Errorf("get user context: decode themes: %w", err)
	}
	summary.UserID = userID
	summary.LastInteraction = last
	return &summary, nil
}

// UpdateUserContext records a new interaction: the topic is appended if new
// (bounded to the most recent 10), the preferred depth is overwritten, and
// the interaction timestamp is refreshed. The row is locked for the duration
// of the read-modify-write so concurrent runs for one user cannot race.
func (s *PostgresStore) UpdateUserContext(ctx context.Context, userID, topic string, depth int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("update user context: %w", err)
	}
	defer tx.Rollback(ctx)

	var topicsRaw []byte
	err = tx.QueryRow(ctx,
		`SELECT previous_topics FROM research_contexts WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&topicsRaw)

	switch {
	case err == pgx.ErrNoRows:
		topicsJSON, _ := json.Marshal([]string{topic})
		_, err = tx.Exec(ctx,
			`INSERT INTO research_contexts (user_id, previous_topics, preferred_depth, last_interaction)
			 VALUES ($1, $2, $3, NOW())`,
			userID, topicsJSON, depth)
	case err != nil:
		return fmt.Errorf("update user context: %w", err)
	default:
		var topics []string
		if err := json.Unmarshal(topicsRaw, &topics); err != nil {
			return fmt.Errorf("update user context: decode topics: %w", err)
		}
		topicsJSON, _ := json.Marshal(AppendTopic(topics, topic))
		_, err = tx.Exec(ctx,
			`UPDATE research_contexts
			 SET previous_topics = $2, preferred_depth = $3, last_interaction = NOW()
			 WHERE user_id = $1`,
			userID, topicsJSON, depth)
	}
	if err != nil {
		return fmt.Errorf("update user context: %w", err)
	}
	return tx.Commit(ctx)
}

// AppendTopic appends topic to a history list unless already present,
// keeping only the most recent maxStoredTopics entries.
func AppendTopic(topics []string, topic string) []string {
	for _, t := range topics {
		if t == topic {
			return topics
		}
	}
	topics = append(topics, topic)
	if len(topics) > maxStoredTopics {
		topics = topics[len(topics)-maxStoredTopics:]
	}
	return topics
}
