package engine

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/inventory"
)

// Snapshot is the serialisable runtime state of a playthrough.
type Snapshot struct {
	AdventureID            string                     `json:"adventureId,omitempty"`
	CurrentSceneID         string                     `json:"currentSceneId"`
	VisitedScenes          []string                   `json:"visitedScenes"`
	VisitCounts            map[string]int             `json:"visitCounts,omitempty"`
	ChoiceHistory          []HistoryEntry             `json:"choiceHistory"`
	SecretsDiscovered      []string                   `json:"secretsDiscovered"` // scene/choice keys
	SecretChoicesAvailable []string                   `json:"secretChoicesAvailable"`
	Stats                  map[string]any             `json:"stats"`
	Flags                  map[string]bool            `json:"flags"`
	Inventory              map[string]inventory.Entry `json:"inventory"`
	FiredActions           []string                   `json:"firedActions,omitempty"`
	Achievements           []Unlock                   `json:"achievements,omitempty"`
	SavedAt                time.Time                  `json:"savedAt"`
}

// Snapshot captures the current runtime state.
func (e *Engine) Snapshot() Snapshot {
	if e.doc == nil {
		return Snapshot{}
	}
	snap := Snapshot{
		AdventureID:       e.doc.ID,
		CurrentSceneID:    e.current,
		VisitedScenes:     slices.Clone(e.visited),
		VisitCounts:       maps.Clone(e.visitCounts),
		ChoiceHistory:     slices.Clone(e.history),
		SecretsDiscovered: slices.Clone(e.discovered),
		Stats:             e.stats.Values(),
		Flags:             e.stats.Flags(),
		Inventory:         e.inventory.Entries(),
		FiredActions:      slices.Sorted(maps.Keys(e.fired)),
		Achievements:      slices.Clone(e.achievements),
		SavedAt:           e.now(),
	}
	if snap.VisitedScenes == nil {
		snap.VisitedScenes = []string{}
	}
	if snap.ChoiceHistory == nil {
		snap.ChoiceHistory = []HistoryEntry{}
	}
	if snap.SecretsDiscovered == nil {
		snap.SecretsDiscovered = []string{}
	}
	snap.SecretChoicesAvailable = []string{}
	if scene, ok := e.CurrentScene(); ok {
		for _, c := range scene.Choices {
			if c.IsSecret && e.IsDiscovered(scene.ID, c.ID) {
				snap.SecretChoicesAvailable = append(snap.SecretChoicesAvailable, c.ID)
			}
		}
	}
	return snap
}

// Restore loads doc and rehydrates every store from snap, then returns the
// player to the snapshot's scene. Entry actions are not replayed; they ran
// when the scene was first entered. Discovery is rescanned.
func (e *Engine) Restore(ctx context.Context, doc *adventure.Adventure, snap Snapshot) error {
	if err := e.accept(ctx, doc); err != nil {
		return err
	}
	scene, ok := doc.Scene(snap.CurrentSceneID)
	if !ok {
		return fmt.Errorf("%w: snapshot scene %q", ErrSceneNotFound, snap.CurrentSceneID)
	}

	e.reset(doc)
	e.stats.Restore(snap.Stats, snap.Flags)
	e.inventory.Restore(snap.Inventory)

	for _, id := range snap.VisitedScenes {
		if e.visitCounts[id] > 0 {
			continue
		}
		e.visited = append(e.visited, id)
		e.visitCounts[id] = max(1, snap.VisitCounts[id])
		e.visits += e.visitCounts[id]
	}
	if e.visitCounts[scene.ID] == 0 {
		e.visited = append(e.visited, scene.ID)
		e.visitCounts[scene.ID] = 1
		e.visits++
	}

	e.history = slices.Clone(snap.ChoiceHistory)
	for i, h := range e.history {
		key := choiceKey(h.SceneID, h.ChoiceID)
		e.choiceCounts[h.ChoiceID]++
		e.uses[key]++
		e.lastChosen[key] = i
	}
	for _, key := range snap.SecretsDiscovered {
		sceneID, choiceID, ok := strings.Cut(key, "/")
		if !ok {
			e.logger.Warn("Ignoring discovered secret without a scene", "secret", key)
			continue
		}
		if _, found := doc.Choice(sceneID, choiceID); !found {
			e.logger.Warn("Ignoring discovered secret not in adventure", "secret", key)
			continue
		}
		if !e.isDiscovered[key] {
			e.isDiscovered[key] = true
			e.discovered = append(e.discovered, key)
		}
	}
	for _, id := range snap.FiredActions {
		e.fired[id] = true
	}
	e.achievements = slices.Clone(snap.Achievements)

	e.current = scene.ID
	e.scanDiscoveries(scene)
	e.invalidate()
	e.logger.Info("Playthrough restored", "adventure", doc.ID, "scene", scene.ID, "choices", len(e.history))
	return nil
}
