package engine

import (
	"fmt"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/inventory"
	"github.com/jwebster45206/adventure-engine/pkg/stats"
)

// ActionResult reports what one action did. Failures are reported here, never
// returned as errors.
type ActionResult struct {
	Type    string `json:"type"`
	Key     string `json:"key,omitempty"`
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Message string `json:"message,omitempty"`
}

// ExecuteActions runs actions in list order. A one-time action with an id
// fires at most once per playthrough; later runs are skipped. Both caches are
// dropped afterwards.
func (e *Engine) ExecuteActions(actions adventure.Actions) []ActionResult {
	if e.doc == nil {
		e.logger.Error("Cannot execute actions without a loaded adventure")
		return nil
	}
	results := make([]ActionResult, 0, len(actions))
	for _, a := range actions {
		meta := a.Meta()
		if meta.OneTime && meta.ID != "" && e.fired[meta.ID] {
			e.logger.Debug("Skipping one-time action", "id", meta.ID, "type", adventure.TypeOf(a))
			results = append(results, ActionResult{
				Type:    adventure.TypeOf(a),
				ID:      meta.ID,
				Success: true,
				Skipped: true,
				Message: "already fired",
			})
			continue
		}

		res := e.execute(a)
		res.ID = meta.ID
		if meta.OneTime && meta.ID != "" {
			e.fired[meta.ID] = true
		}
		results = append(results, res)
	}
	e.invalidate()
	return results
}

func (e *Engine) execute(a adventure.Action) ActionResult {
	res := ActionResult{Type: adventure.TypeOf(a)}
	switch act := a.(type) {
	case *adventure.SetStat:
		res.Key = act.Stat
		return fromStat(res, e.stats.Set(act.Stat, act.Value))
	case *adventure.AddStat:
		res.Key = act.Stat
		return fromStat(res, e.stats.Add(act.Stat, act.Amount))
	case *adventure.MultiplyStat:
		res.Key = act.Stat
		return fromStat(res, e.stats.Multiply(act.Stat, act.Factor))

	case *adventure.SetFlag:
		res.Key = act.Flag
		v, ok := act.Value.(bool)
		if !ok {
			coerced, valid := stats.Bool(act.Value)
			if !valid {
				e.logger.Warn("Ignoring non-boolean flag value", "flag", act.Flag, "value", act.Value)
				res.Message = fmt.Sprintf("value %v is not a boolean", act.Value)
				return res
			}
			e.logger.Warn("Coerced non-boolean flag value", "flag", act.Flag, "value", act.Value, "coerced", coerced)
			v = coerced
		}
		return fromStat(res, e.stats.SetFlag(act.Flag, v))
	case *adventure.ToggleFlag:
		res.Key = act.Flag
		return fromStat(res, e.stats.ToggleFlag(act.Flag))

	case *adventure.AddInventory:
		res.Key = act.Item
		return fromInventory(res, e.inventory.Add(act.Item, act.Quantity))
	case *adventure.RemoveInventory:
		res.Key = act.Item
		return fromInventory(res, e.inventory.Remove(act.Item, act.Quantity))
	case *adventure.SetInventory:
		res.Key = act.Item
		return fromInventory(res, e.inventory.SetCount(act.Item, act.Quantity))

	case *adventure.AddAchievement:
		res.Key = act.Achievement
		if e.unlock(act.Achievement) {
			res.Success = true
		} else {
			res.Success, res.Skipped, res.Message = true, true, "already unlocked"
		}
		return res

	case *adventure.UnknownAction:
		res.Key = act.Key
		e.logger.Warn("Unknown action type", "type", act.Type, "key", act.Key)
		res.Message = fmt.Sprintf("unknown action type %q", act.Type)
		return res

	default:
		e.logger.Warn("Unsupported action", "action", fmt.Sprintf("%T", a))
		res.Message = "unsupported action"
		return res
	}
}

func fromStat(res ActionResult, r stats.Result) ActionResult {
	res.Success = r.Success
	res.Message = r.Message
	return res
}

func fromInventory(res ActionResult, r inventory.Result) ActionResult {
	res.Success = r.Success
	res.Message = r.Message
	return res
}

// unlock records an achievement once. Undefined ids are recorded with a
// warning.
func (e *Engine) unlock(id string) bool {
	for _, u := range e.achievements {
		if u.ID == id {
			return false
		}
	}
	u := Unlock{ID: id, At: e.now()}
	if def, ok := e.doc.Achievement(id); ok {
		u.Name = def.Name
	} else {
		e.logger.Warn("Achievement not defined in adventure", "achievement", id)
	}
	e.achievements = append(e.achievements, u)
	e.logger.Info("Achievement unlocked", "achievement", id)
	return true
}
