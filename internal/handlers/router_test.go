package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/choices"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const towerDoc = `{
  "id": "tower",
  "title": "The Tower",
  "startSceneId": "gate",
  "stats": [
    {"id": "gold", "name": "Gold Coins", "type": "number", "default": 3, "min": 0},
    {"id": "luck", "type": "percentage", "default": 40},
    {"id": "seed", "type": "number", "default": 7, "hidden": true},
    {"id": "total_items", "type": "number", "default": 0}
  ],
  "inventory": [
    {"id": "apple", "name": "Apple", "consumable": true, "onUse": [{"type": "add_stat", "key": "gold", "value": 1}]}
  ],
  "scenes": [
    {
      "id": "gate",
      "title": "The Gate",
      "content": "A locked gate.",
      "choices": [
        {"id": "pick", "text": "Pick an apple", "isFake": true,
         "actions": [{"type": "add_inventory", "key": "apple", "value": 2}]},
        {"id": "bribe", "text": "Bribe the guard", "target": "yard", "isLocked": true,
         "requirements": {"type": "stat", "key": "gold", "operator": ">=", "value": 5}},
        {"id": "climb", "text": "Climb the wall", "target": "yard"}
      ]
    },
    {"id": "yard", "title": "The Yard", "choices": [{"id": "leave", "text": "Leave", "target": "gate"}]}
  ]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func setupRouter(t *testing.T) (http.Handler, *storage.MockStorage) {
	t.Helper()
	doc, err := adventure.DecodeBytes([]byte(towerDoc), adventure.FormatJSON)
	require.NoError(t, err)

	store := storage.NewMockStorage()
	store.AddAdventure("tower", doc)
	router := NewRouter(store, testLogger(), engine.WithValidator(validate.Service{Options: validate.Options{Scope: validate.ScopeStructure}}))
	return router, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

func createSession(t *testing.T, h http.Handler) SessionResponse {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/sessions", `{"adventure":"tower"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	return decodeBody[SessionResponse](t, rr)
}

func findView(views []engine.ChoiceView, id string) (engine.ChoiceView, bool) {
	for _, v := range views {
		if v.ID == id {
			return v, true
		}
	}
	return engine.ChoiceView{}, false
}

func TestRouter_Health(t *testing.T) {
	router, store := setupRouter(t)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health", "").Code)

	store.SetPingError(errors.New("connection refused"))
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodGet, "/health", "").Code)
}

func TestAdventures(t *testing.T) {
	router, _ := setupRouter(t)

	rr := do(t, router, http.MethodGet, "/v1/adventures", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []AdventureListItem{{ID: "tower", Title: "The Tower"}}, decodeBody[[]AdventureListItem](t, rr))

	rr = do(t, router, http.MethodGet, "/v1/adventures/tower", "")
	require.Equal(t, http.StatusOK, rr.Code)
	summary := decodeBody[AdventureSummary](t, rr)
	assert.Equal(t, "gate", summary.StartSceneID)
	assert.Equal(t, 2, summary.Scenes)
	assert.Equal(t, 1, summary.Items)
	assert.NotEqual(t, validate.SeverityCritical, summary.Validation.Severity)

	rr = do(t, router, http.MethodGet, "/v1/adventures/atlantis", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateSession(t *testing.T) {
	router, store := setupRouter(t)

	session := createSession(t, router)
	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Equal(t, "tower", session.AdventureID)
	assert.Equal(t, SceneView{ID: "gate", Title: "The Gate", Content: "A locked gate."}, session.Scene)
	assert.Equal(t, 1, store.SessionCount())

	bribe, ok := findView(session.Choices, "bribe")
	require.True(t, ok)
	assert.Equal(t, choices.Locked, bribe.Status)
	assert.Contains(t, bribe.Reason, "gold")

	var names []string
	for _, s := range session.Stats {
		names = append(names, s.ID)
		if s.ID == "gold" {
			assert.Equal(t, "Gold Coins", s.Name)
		}
		if s.ID == "luck" {
			assert.Equal(t, "40%", s.Display)
		}
	}
	assert.NotContains(t, names, "seed", "hidden stats are not shown")
}

func TestCreateSession_BadRequests(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing adventure", `{}`, http.StatusBadRequest},
		{"unknown adventure", `{"adventure":"atlantis"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, http.MethodPost, "/v1/sessions", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			resp := decodeBody[ErrorResponse](t, rr)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestCreateSession_InvalidAdventure(t *testing.T) {
	router, store := setupRouter(t)
	store.AddAdventure("broken", &adventure.Adventure{
		StartSceneID: "a",
		Scenes:       []adventure.Scene{{ID: "a", Choices: []adventure.Choice{{ID: "go", Target: "void"}}}},
	})

	rr := do(t, router, http.MethodPost, "/v1/sessions", `{"adventure":"broken"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, 0, store.SessionCount())
}

func TestPlaythrough(t *testing.T) {
	router, _ := setupRouter(t)
	session := createSession(t, router)
	base := "/v1/sessions/" + session.ID.String()

	rr := do(t, router, http.MethodPost, base+"/choices", `{"choice_id":"bribe"}`)
	assert.Equal(t, http.StatusConflict, rr.Code, "locked choices are rejected")

	rr = do(t, router, http.MethodPost, base+"/choices", `{"choice_id":"fly"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, http.MethodPost, base+"/choices", `{"choice_id":"pick"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	picked := decodeBody[ChoiceResponse](t, rr)
	assert.False(t, picked.Outcome.Moved)
	assert.Equal(t, []ItemView{{ID: "apple", Name: "Apple", Quantity: 2}}, picked.Session.Inventory)

	rr = do(t, router, http.MethodPost, base+"/items/apple/use", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	used := decodeBody[ItemUseResponse](t, rr)
	assert.True(t, used.Use.Consumed)
	assert.Equal(t, 1, used.Use.Remaining)

	rr = do(t, router, http.MethodPost, base+"/items/sword/use", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, http.MethodPost, base+"/choices", `{"choice_id":"climb"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	climbed := decodeBody[ChoiceResponse](t, rr)
	assert.True(t, climbed.Outcome.Moved)
	assert.Equal(t, "yard", climbed.Session.Scene.ID)

	rr = do(t, router, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rr.Code)
	state := decodeBody[SessionResponse](t, rr)
	assert.Equal(t, "yard", state.Scene.ID, "state persists between requests")
	assert.Equal(t, 2, state.ChoicesMade)
	for _, s := range state.Stats {
		if s.ID == "gold" {
			assert.Equal(t, 4.0, s.Value)
		}
		if s.ID == "total_items" {
			assert.Equal(t, 1.0, s.Value)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	router, store := setupRouter(t)
	session := createSession(t, router)
	base := "/v1/sessions/" + session.ID.String()

	rr := do(t, router, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, 0, store.SessionCount())

	rr = do(t, router, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, http.MethodGet, "/v1/sessions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodPost, "/v1/sessions/"+uuid.NewString()+"/choices", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "choice_id is required")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(engine.ErrItemNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(engine.ErrItemNotHeld))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(adventure.ErrInvalidDocument))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
