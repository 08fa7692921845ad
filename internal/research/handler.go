package research

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/research-brief-generator/internal/models"
	"github.com/ayush/research-brief-generator/internal/pipeline"
	"github.com/ayush/research-brief-generator/internal/store"
)

// listLimit caps how many briefs the list endpoint returns.
const listLimit = 50

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// BriefRunner runs one end-to-end brief generation.
type BriefRunner interface {
	Run(ctx context.Context, topic string, depth int, userID string, followUp bool) (*models.FinalBrief, error)
}

// BriefReader defines brief retrieval and deletion.
type BriefReader interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]models.FinalBrief, error)
	GetByBriefID(ctx context.Context, briefID string) (*models.FinalBrief, error)
	OwnerOf(ctx context.Context, briefID string) (string, error)
	Delete(ctx context.Context, briefID string) error
}

// FileStore defines artifact storage access.
type FileStore interface {
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// ContextReader reads a user's stored research context.
type ContextReader interface {
	GetUserContext(ctx context.Context, userID string) (*models.ContextSummary, error)
}

// Handler holds the brief HTTP handlers.
type Handler struct {
	runner   BriefRunner
	briefs   BriefReader
	files    FileStore
	contexts ContextReader
}

func NewHandler(runner BriefRunner, briefs BriefReader, files FileStore, contexts ContextReader) *Handler {
	return &Handler{runner: runner, briefs: briefs, files: files, contexts: contexts}
}

// Create runs the brief generation pipeline for the authenticated user.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(string)

	var req models.BriefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Topic == "" || len(req.Topic) > 500 {
		http.Error(w, `{"error":"topic must be 1-500 characters"}`, http.StatusBadRequest)
		return
	}
	if req.Depth == 0 {
		req.Depth = 3
	}
	if req.Depth < 1 || req.Depth > 5 {
		http.Error(w, `{"error":"depth must be between 1 and 5"}`, http.StatusBadRequest)
		return
	}

	brief, err := h.runner.Run(r.Context(), req.Topic, req.Depth, userID, req.FollowUp)
	if err != nil {
		log.Printf("brief generation error: %v", err)
		var wErr *pipeline.WorkflowError
		if errors.As(err, &wErr) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": wErr.Error()})
			return
		}
		http.Error(w, `{"error":"brief generation failed"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, brief)
}

// List returns the current user's briefs, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(string)
	briefs, err := h.briefs.ListRecent(r.Context(), userID, listLimit)
	if err != nil {
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if briefs == nil {
		briefs = []models.FinalBrief{}
	}
	writeJSON(w, http.StatusOK, briefs)
}

// Get returns a single brief owned by the current user.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	brief, ok := h.ownedBrief(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, brief)
}

// Delete removes a brief and its stored artifact.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	brief, ok := h.ownedBrief(w, r)
	if !ok {
		return
	}
	userID := r.Context().Value("user_id").(string)

	if err := h.files.Remove(r.Context(), store.ArtifactKey(userID, brief.BriefID)); err != nil {
		log.Printf("artifact remove error (non-fatal): %v", err)
	}
	if err := h.briefs.Delete(r.Context(), brief.BriefID); err != nil {
		http.Error(w, `{"error":"delete failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// DownloadArtifact streams the brief's rendered JSON artifact.
func (h *Handler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	brief, ok := h.ownedBrief(w, r)
	if !ok {
		return
	}
	userID := r.Context().Value("user_id").(string)

	data, ct, err := h.files.Download(r.Context(), store.ArtifactKey(userID, brief.BriefID))
	if err != nil {
		http.Error(w, `{"error":"artifact not available"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", "attachment; filename=brief.json")
	w.Write(data)
}

// GetContext returns the current user's research context.
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("user_id").(string)
	summary, err := h.contexts.GetUserContext(r.Context(), userID)
	if err != nil {
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if summary == nil {
		http.Error(w, `{"error":"no research context yet"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ownedBrief loads the brief from the URL and checks the current user owns
// it, writing the error response itself when not.
func (h *Handler) ownedBrief(w http.ResponseWriter, r *http.Request) (*models.FinalBrief, bool) {
	userID := r.Context().Value("user_id").(string)
	id := chi.URLParam(r, "id")

	owner, err := h.briefs.OwnerOf(r.Context(), id)
	if err != nil || owner != userID {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return nil, false
	}
	brief, err := h.briefs.GetByBriefID(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return nil, false
	}
	return brief, true
}
