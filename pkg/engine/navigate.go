package engine

import (
	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/choices"
)

// NavigateToScene leaves the current scene and enters id: the current scene's
// onExit actions run, the visit is recorded, the new scene's onEnter actions
// run, and its secret choices are scanned for discovery. An unknown id is
// logged and nothing changes.
func (e *Engine) NavigateToScene(id string) bool {
	if e.doc == nil {
		e.logger.Error("Cannot navigate without a loaded adventure", "scene", id)
		return false
	}
	next, ok := e.doc.Scene(id)
	if !ok {
		e.logger.Error("Scene not found", "scene", id, "from", e.current)
		return false
	}

	e.phase = PhaseTransitioning
	defer func() { e.phase = PhaseLoaded }()

	if cur, ok := e.CurrentScene(); ok && len(cur.OnExit) > 0 {
		e.ExecuteActions(cur.OnExit)
	}

	from := e.current
	e.current = id
	if e.visitCounts[id] == 0 {
		e.visited = append(e.visited, id)
	}
	e.visitCounts[id]++
	e.visits++

	// onEnter runs on every entry; one-time actions guard themselves.
	if len(next.OnEnter) > 0 {
		e.ExecuteActions(next.OnEnter)
	}
	e.scanDiscoveries(next)
	e.invalidate()

	e.logger.Debug("Entered scene", "scene", id, "from", from, "visits", e.visitCounts[id])
	return true
}

// CurrentScene returns the scene the player is in.
func (e *Engine) CurrentScene() (*adventure.Scene, bool) {
	if e.doc == nil || e.current == "" {
		return nil, false
	}
	return e.doc.Scene(e.current)
}

// CurrentSceneID returns the current scene id, or "" when unloaded.
func (e *Engine) CurrentSceneID() string {
	return e.current
}

// scanDiscoveries records every secret in scene whose discovery test now
// holds, returning the newly discovered keys.
func (e *Engine) scanDiscoveries(scene *adventure.Scene) []string {
	var found []string
	for i := range scene.Choices {
		c := &scene.Choices[i]
		if !c.IsSecret || e.IsDiscovered(scene.ID, c.ID) {
			continue
		}
		cls := choices.Classify(c, false, e.eval, view{e})
		if cls.NewlyDiscovered && e.recordDiscovery(scene.ID, c.ID) {
			found = append(found, choiceKey(scene.ID, c.ID))
		}
	}
	return found
}
