package handlers

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/validate"
)

// AdventureListItem is one entry of GET /v1/adventures.
type AdventureListItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// AdventureSummary describes one adventure without exposing its scene graph.
type AdventureSummary struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	StartSceneID string          `json:"startSceneId"`
	Scenes       int             `json:"scenes"`
	Items        int             `json:"items"`
	Achievements int             `json:"achievements"`
	Validation   validate.Report `json:"validation"`
}

type AdventureHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewAdventureHandler(storage storage.Storage, logger *slog.Logger) *AdventureHandler {
	return &AdventureHandler{
		storage: storage,
		logger:  logger,
	}
}

// List handles GET /v1/adventures.
func (h *AdventureHandler) List(w http.ResponseWriter, r *http.Request) {
	adventures, err := h.storage.ListAdventures(r.Context())
	if err != nil {
		h.logger.Error("Failed to list adventures", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list adventures")
		return
	}

	items := make([]AdventureListItem, 0, len(adventures))
	for id, title := range adventures {
		items = append(items, AdventureListItem{ID: id, Title: title})
	}
	slices.SortFunc(items, func(a, b AdventureListItem) int {
		return strings.Compare(a.ID, b.ID)
	})
	writeJSON(w, h.logger, http.StatusOK, items)
}

// Get handles GET /v1/adventures/{id}. The summary carries a full validation
// report so authors can see warnings without running the CLI.
func (h *AdventureHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.storage.GetAdventure(r.Context(), id)
	if err != nil {
		h.logger.Warn("Failed to load adventure", "adventure", id, "error", err)
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if doc == nil {
		writeError(w, h.logger, http.StatusNotFound, "Adventure not found")
		return
	}

	report, err := validate.Validate(r.Context(), doc, validate.Options{Scope: validate.ScopeFull})
	if err != nil {
		h.logger.Error("Failed to validate adventure", "adventure", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to validate adventure")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, AdventureSummary{
		ID:           id,
		Title:        doc.Title,
		Description:  doc.Description,
		StartSceneID: doc.StartSceneID,
		Scenes:       len(doc.Scenes),
		Items:        len(doc.Inventory),
		Achievements: len(doc.Achievements),
		Validation:   report,
	})
}
