package validate

import (
	"context"
	"testing"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, doc string) *adventure.Adventure {
	t.Helper()
	a, err := adventure.DecodeBytes([]byte(doc), adventure.FormatJSON)
	require.NoError(t, err)
	return a
}

func messages(findings []Finding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Message)
	}
	return out
}

func TestValidate_CleanDocument(t *testing.T) {
	a := decode(t, `{
		"startSceneId": "a",
		"stats": [{"id": "gold", "type": "number"}],
		"inventory": [{"id": "potion", "maxStack": 5}],
		"achievements": [{"id": "rich"}],
		"scenes": [
			{"id": "a", "choices": [{"id": "go", "text": "Go", "target": "b",
				"requirements": {"type": "stat", "key": "gold", "operator": "gte", "value": 1},
				"actions": [{"type": "add_inventory", "key": "potion", "value": 1}]}]},
			{"id": "b", "onEnter": [{"type": "add_achievement", "key": "rich", "id": "rich_once", "oneTime": true}]}
		]
	}`)

	report, err := Validate(context.Background(), a, Options{})
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, SeverityNone, report.Severity)
}

func TestValidate_Critical(t *testing.T) {
	a := decode(t, `{
		"startSceneId": "a",
		"scenes": [
			{"id": "a", "choices": [
				{"id": "go", "text": "Go", "target": "nowhere"},
				{"id": "go", "text": "Again", "target": "a"}
			]},
			{"id": "a"}
		]
	}`)

	report, err := Validate(context.Background(), a, Options{Scope: ScopeStructure})
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, report.Severity)
	assert.ElementsMatch(t, []string{
		`duplicate scene id "a"`,
		`choice "go" targets unknown scene "nowhere"`,
		`duplicate choice id "go"`,
	}, messages(report.Errors))
	assert.Contains(t, report.Summary(), "3 error(s)")
}

func TestValidate_Warnings(t *testing.T) {
	a := decode(t, `{
		"startSceneId": "a",
		"stats": [{"id": "hp", "min": 10, "max": 1}],
		"scenes": [{
			"id": "a",
			"onEnter": [
				{"type": "add_stat", "key": "hp", "value": 1, "oneTime": true},
				{"type": "set_flag", "key": "x", "id": "dup", "oneTime": true},
				{"type": "set_flag", "key": "y", "id": "dup", "oneTime": true},
				{"type": "teleport", "key": "moon"},
				{"type": "add_inventory", "key": "ghost"},
				{"type": "add_achievement", "key": "legend"}
			],
			"choices": [{
				"id": "odd", "text": "Odd", "isFake": true,
				"visibility": {"logic": "SOMETIMES", "conditions": [
					{"type": "weather", "key": "rain"},
					{"type": "stat", "key": "hp", "operator": "roughly", "value": 1},
					{"type": "scene_visited", "key": "moon"}
				]}
			}]
		}]
	}`)

	report, err := Validate(context.Background(), a, Options{Scope: ScopeFull})
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.Equal(t, SeverityWarning, report.Severity)

	msgs := messages(report.Warnings)
	for _, want := range []string{
		`stat "hp" has min 10 greater than max 1`,
		"one-time action has no id and may repeat",
		`one-time action id "dup" is also used at scenes[a].onEnter[1]`,
		`unknown action type "teleport" is ignored`,
		`action references unknown item "ghost"`,
		`achievement "legend" is not defined`,
		`unknown logic "SOMETIMES" evaluates to false`,
		`unknown condition type "weather" evaluates to false`,
		`unknown operator "roughly"`,
		`condition references unknown scene "moon"`,
	} {
		assert.Contains(t, msgs, want)
	}
}

func TestValidate_TotalItemsWrites(t *testing.T) {
	a := decode(t, `{
		"startSceneId": "a",
		"stats": [{"id": "total_items", "type": "number"}],
		"scenes": [{
			"id": "a",
			"onEnter": [{"type": "add_stat", "key": "total_items", "value": 5}]
		}]
	}`)

	report, err := Validate(context.Background(), a, Options{Scope: ScopeFull})
	require.NoError(t, err)
	assert.Equal(t, SeverityWarning, report.Severity)
	assert.Contains(t, messages(report.Warnings),
		`stat "total_items" mirrors the inventory total and is overwritten by the next inventory change`)
}

func TestValidate_EnableFixes(t *testing.T) {
	const doc = `{
		"startSceneId": "a",
		"scenes": [{"id": "a", "choices": [{"id": "wait", "text": "Wait"}]}]
	}`

	a := decode(t, doc)
	report, err := Validate(context.Background(), a, Options{})
	require.NoError(t, err)
	assert.Equal(t, SeverityWarning, report.Severity)
	assert.False(t, a.Scenes[0].Choices[0].IsFake)

	a = decode(t, doc)
	report, err = Validate(context.Background(), a, Options{EnableFixes: true})
	require.NoError(t, err)
	assert.Equal(t, SeverityNone, report.Severity)
	require.Len(t, report.Fixes, 1)
	c, ok := a.Choice("a", "wait")
	require.True(t, ok)
	assert.True(t, c.IsFake)
}

func TestValidate_InfoOnly(t *testing.T) {
	a := decode(t, `{
		"startSceneId": "a",
		"scenes": [{"id": "a", "onEnter": [{"type": "add_stat", "key": "xp", "value": 1}]}]
	}`)

	report, err := Validate(context.Background(), a, Options{})
	require.NoError(t, err)
	assert.Equal(t, SeverityInfo, report.Severity)
	assert.Equal(t, []string{`action creates undeclared stat "xp"`}, messages(report.Info))
}

func TestValidate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Validate(ctx, &adventure.Adventure{}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService(t *testing.T) {
	svc := Service{Options: Options{Scope: ScopeStructure}}
	report, err := svc.Validate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, report.Severity)
}
