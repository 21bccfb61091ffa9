package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/internal/logger"
	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

// CreateSessionRequest defines the request body for starting a playthrough.
type CreateSessionRequest struct {
	Adventure string `json:"adventure"`
}

// ChoiceRequest defines the request body for selecting a choice.
type ChoiceRequest struct {
	ChoiceID string `json:"choice_id"`
	Input    any    `json:"input,omitempty"`
}

// SceneView is the player-facing part of a scene.
type SceneView struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// StatView is a stat as shown to the player.
type StatView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Value   any    `json:"value"`
	Display string `json:"display"`
}

// ItemView is a held item.
type ItemView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// SessionResponse is the current state of a playthrough.
type SessionResponse struct {
	ID           uuid.UUID           `json:"id"`
	AdventureID  string              `json:"adventure"`
	Scene        SceneView           `json:"scene"`
	Choices      []engine.ChoiceView `json:"choices"`
	Stats        []StatView          `json:"stats"`
	Flags        map[string]bool     `json:"flags"`
	Inventory    []ItemView          `json:"inventory"`
	Achievements []engine.Unlock     `json:"achievements"`
	Discovered   []string            `json:"discovered"`
	ChoicesMade  int                 `json:"choices_made"`
}

// ChoiceResponse is returned after a choice is made.
type ChoiceResponse struct {
	Outcome *engine.Outcome `json:"outcome"`
	Session SessionResponse `json:"session"`
}

// ItemUseResponse is returned after an item is used.
type ItemUseResponse struct {
	Use     *engine.ItemUse `json:"use"`
	Session SessionResponse `json:"session"`
}

// SessionHandler serves playthroughs. Every request rebuilds an engine from
// the stored snapshot, acts on it, and saves the new snapshot. Requests for the
// same session are serialised.
type SessionHandler struct {
	storage    storage.Storage
	logger     *slog.Logger
	engineOpts []engine.Option
	locks      sessionLocks
}

func NewSessionHandler(storage storage.Storage, logger *slog.Logger, engineOpts ...engine.Option) *SessionHandler {
	return &SessionHandler{
		storage:    storage,
		logger:     logger,
		engineOpts: engineOpts,
	}
}

func (h *SessionHandler) lock(id uuid.UUID) func() {
	return h.locks.acquire(id)
}

// sessionLocks serialises requests per session. An entry lives while any
// request holds or waits on it.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) acquire(id uuid.UUID) func() {
	l.mu.Lock()
	if l.entries == nil {
		l.entries = make(map[uuid.UUID]*sessionLock)
	}
	entry, ok := l.entries[id]
	if !ok {
		entry = &sessionLock{}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (h *SessionHandler) newEngine(id uuid.UUID, adventureID string) *engine.Engine {
	opts := append([]engine.Option{engine.WithLogger(logger.WithSession(h.logger, id.String(), adventureID))}, h.engineOpts...)
	return engine.New(opts...)
}

// Create handles POST /v1/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid create session request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Adventure == "" {
		writeError(w, h.logger, http.StatusBadRequest, "adventure is required")
		return
	}

	doc, ok := h.loadAdventure(w, r.Context(), req.Adventure)
	if !ok {
		return
	}

	id := uuid.New()
	eng := h.newEngine(id, req.Adventure)
	if err := eng.Load(r.Context(), doc); err != nil {
		h.logger.Warn("Adventure rejected", "adventure", req.Adventure, "error", err)
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !h.save(w, r.Context(), id, eng) {
		return
	}

	h.logger.Info("Session created", "session_id", id, "adventure", req.Adventure)
	writeJSON(w, h.logger, http.StatusCreated, h.view(id, req.Adventure, eng))
}

// Get handles GET /v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	unlock := h.lock(id)
	defer unlock()

	eng, snap, ok := h.restore(w, r.Context(), id)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, h.view(id, snap.AdventureID, eng))
}

// Choose handles POST /v1/sessions/{id}/choices.
func (h *SessionHandler) Choose(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.ChoiceID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "choice_id is required")
		return
	}

	unlock := h.lock(id)
	defer unlock()

	eng, snap, ok := h.restore(w, r.Context(), id)
	if !ok {
		return
	}

	var sub *engine.Submission
	if req.Input != nil {
		sub = &engine.Submission{Value: req.Input}
	}
	outcome, err := eng.MakeChoice(req.ChoiceID, sub)
	if err != nil {
		writeError(w, h.logger, statusFor(err), err.Error())
		return
	}
	if !h.save(w, r.Context(), id, eng) {
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ChoiceResponse{
		Outcome: outcome,
		Session: h.view(id, snap.AdventureID, eng),
	})
}

// UseItem handles POST /v1/sessions/{id}/items/{item}/use.
func (h *SessionHandler) UseItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	unlock := h.lock(id)
	defer unlock()

	eng, snap, ok := h.restore(w, r.Context(), id)
	if !ok {
		return
	}

	use, err := eng.UseItem(chi.URLParam(r, "item"))
	if err != nil {
		writeError(w, h.logger, statusFor(err), err.Error())
		return
	}
	if !h.save(w, r.Context(), id, eng) {
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ItemUseResponse{
		Use:     use,
		Session: h.view(id, snap.AdventureID, eng),
	})
}

// Delete handles DELETE /v1/sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	unlock := h.lock(id)
	defer unlock()

	if err := h.storage.DeleteSnapshot(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	h.logger.Info("Session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", raw, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return uuid.Nil, false
	}
	return id, true
}

func (h *SessionHandler) loadAdventure(w http.ResponseWriter, ctx context.Context, id string) (*adventure.Adventure, bool) {
	doc, err := h.storage.GetAdventure(ctx, id)
	if err != nil {
		h.logger.Warn("Failed to load adventure", "adventure", id, "error", err)
		writeError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}
	if doc == nil {
		writeError(w, h.logger, http.StatusNotFound, "Adventure not found")
		return nil, false
	}
	return doc, true
}

func (h *SessionHandler) restore(w http.ResponseWriter, ctx context.Context, id uuid.UUID) (*engine.Engine, *engine.Snapshot, bool) {
	snap, err := h.storage.LoadSnapshot(ctx, id)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return nil, nil, false
	}
	if snap == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return nil, nil, false
	}

	doc, ok := h.loadAdventure(w, ctx, snap.AdventureID)
	if !ok {
		return nil, nil, false
	}
	eng := h.newEngine(id, snap.AdventureID)
	if err := eng.Restore(ctx, doc, *snap); err != nil {
		h.logger.Error("Failed to restore session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusConflict, err.Error())
		return nil, nil, false
	}
	return eng, snap, true
}

func (h *SessionHandler) save(w http.ResponseWriter, ctx context.Context, id uuid.UUID, eng *engine.Engine) bool {
	snap := eng.Snapshot()
	if err := h.storage.SaveSnapshot(ctx, id, &snap); err != nil {
		h.logger.Error("Failed to save session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return false
	}
	return true
}

func (h *SessionHandler) view(id uuid.UUID, adventureID string, eng *engine.Engine) SessionResponse {
	resp := SessionResponse{
		ID:           id,
		AdventureID:  adventureID,
		Choices:      eng.CurrentChoices(),
		Flags:        eng.Stats().ExportableFlags(),
		Stats:        []StatView{},
		Inventory:    []ItemView{},
		Achievements: eng.Achievements(),
		Discovered:   eng.Discovered(),
		ChoicesMade:  len(eng.History()),
	}
	if scene, ok := eng.CurrentScene(); ok {
		resp.Scene = SceneView{ID: scene.ID, Title: scene.Title, Content: scene.Content}
	}

	st := eng.Stats()
	values := st.ExportableStats()
	ids := make([]string, 0, len(values))
	for sid := range values {
		if def, ok := st.Definition(sid); ok && def.Hidden {
			continue
		}
		ids = append(ids, sid)
	}
	slices.Sort(ids)
	for _, sid := range ids {
		resp.Stats = append(resp.Stats, StatView{ID: sid, Name: st.DisplayName(sid), Value: values[sid], Display: st.Display(sid)})
	}

	inv := eng.Inventory()
	for _, item := range inv.Items() {
		name := item
		if def, ok := inv.Definition(item); ok && def.Name != "" {
			name = def.Name
		}
		resp.Inventory = append(resp.Inventory, ItemView{ID: item, Name: name, Quantity: inv.Quantity(item)})
	}
	if resp.Achievements == nil {
		resp.Achievements = []engine.Unlock{}
	}
	if resp.Discovered == nil {
		resp.Discovered = []string{}
	}
	return resp
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrChoiceNotFound), errors.Is(err, engine.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrChoiceUnavailable), errors.Is(err, engine.ErrItemNotHeld):
		return http.StatusConflict
	case errors.Is(err, engine.ErrValidation), errors.Is(err, adventure.ErrInvalidDocument):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
