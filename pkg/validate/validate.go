// Package validate checks adventure documents for structural and referential
// problems before they are played.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
	"github.com/jwebster45206/adventure-engine/pkg/inventory"
)

// Severity ranks a report by its worst finding.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Scope limits which checks run.
type Scope string

const (
	// ScopeFull runs structural and reference checks.
	ScopeFull Scope = "full"
	// ScopeStructure runs only the checks that make a document unplayable.
	ScopeStructure Scope = "structure"
)

// Options controls a validation run.
type Options struct {
	Scope       Scope
	EnableFixes bool // Apply safe automatic fixes to the document
}

// Finding is a single problem.
type Finding struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (f Finding) String() string {
	if f.Path == "" {
		return f.Message
	}
	return f.Path + ": " + f.Message
}

// Report collects findings by severity.
type Report struct {
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
	Info     []Finding `json:"info,omitempty"`
	Fixes    []Finding `json:"fixes,omitempty"`
	Severity Severity  `json:"severity"`
}

// Summary is a one-line description of the report.
func (r Report) Summary() string {
	if len(r.Errors) == 0 {
		return fmt.Sprintf("%d warning(s)", len(r.Warnings))
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.String())
	}
	return fmt.Sprintf("%d error(s): %s", len(r.Errors), strings.Join(msgs, "; "))
}

// Service validates with fixed options. It satisfies the engine's Validator.
type Service struct {
	Options Options
}

func (s Service) Validate(ctx context.Context, doc *adventure.Adventure) (Report, error) {
	return Validate(ctx, doc, s.Options)
}

type validator struct {
	doc    *adventure.Adventure
	opts   Options
	report Report

	scenes      map[string]bool
	stats       map[string]bool
	items       map[string]bool
	achieves    map[string]bool
	oneTimeSeen map[string]string
}

// Validate checks doc. Only a cancelled context returns an error; problems
// with the document are reported in the Report.
func Validate(ctx context.Context, doc *adventure.Adventure, opts Options) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if opts.Scope == "" {
		opts.Scope = ScopeFull
	}
	if doc == nil {
		r := Report{Errors: []Finding{{Message: "document is empty"}}}
		r.Severity = SeverityCritical
		return r, nil
	}

	v := &validator{
		doc:         doc,
		opts:        opts,
		scenes:      make(map[string]bool),
		stats:       make(map[string]bool),
		items:       make(map[string]bool),
		achieves:    make(map[string]bool),
		oneTimeSeen: make(map[string]string),
	}
	v.structure()
	if opts.Scope == ScopeFull {
		v.definitions()
		v.references()
	}
	if opts.EnableFixes && len(v.report.Fixes) > 0 {
		doc.Index()
	}

	switch {
	case len(v.report.Errors) > 0:
		v.report.Severity = SeverityCritical
	case len(v.report.Warnings) > 0:
		v.report.Severity = SeverityWarning
	case len(v.report.Info) > 0:
		v.report.Severity = SeverityInfo
	default:
		v.report.Severity = SeverityNone
	}
	return v.report, nil
}

func (v *validator) errorf(path, format string, args ...any) {
	v.report.Errors = append(v.report.Errors, Finding{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) warnf(path, format string, args ...any) {
	v.report.Warnings = append(v.report.Warnings, Finding{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) infof(path, format string, args ...any) {
	v.report.Info = append(v.report.Info, Finding{Path: path, Message: fmt.Sprintf(format, args...)})
}

// structure checks what the runtime needs to play safely.
func (v *validator) structure() {
	if len(v.doc.Scenes) == 0 {
		v.errorf("scenes", "no scenes defined")
	}
	for i, s := range v.doc.Scenes {
		path := fmt.Sprintf("scenes[%d]", i)
		if s.ID == "" {
			v.errorf(path, "scene has no id")
			continue
		}
		if v.scenes[s.ID] {
			v.errorf(path, "duplicate scene id %q", s.ID)
		}
		v.scenes[s.ID] = true
	}

	if v.doc.StartSceneID == "" {
		v.errorf("startSceneId", "start scene is required")
	} else if !v.scenes[v.doc.StartSceneID] {
		v.errorf("startSceneId", "start scene %q not found", v.doc.StartSceneID)
	}

	for i := range v.doc.Scenes {
		s := &v.doc.Scenes[i]
		seen := make(map[string]bool, len(s.Choices))
		for j := range s.Choices {
			c := &s.Choices[j]
			path := fmt.Sprintf("scenes[%s].choices[%d]", s.ID, j)
			if c.ID == "" {
				v.errorf(path, "choice has no id")
			} else if seen[c.ID] {
				v.errorf(path, "duplicate choice id %q", c.ID)
			}
			seen[c.ID] = true

			switch {
			case c.IsFake:
			case c.Target == "":
				if v.opts.EnableFixes {
					c.IsFake = true
					v.report.Fixes = append(v.report.Fixes, Finding{Path: path, Message: fmt.Sprintf("marked targetless choice %q as fake", c.ID)})
				} else {
					v.warnf(path, "choice %q has no target and is not marked fake", c.ID)
				}
			case !v.scenes[c.Target]:
				v.errorf(path, "choice %q targets unknown scene %q", c.ID, c.Target)
			}
		}
	}
}

// definitions checks stat, item and achievement declarations.
func (v *validator) definitions() {
	for i, d := range v.doc.Stats {
		path := fmt.Sprintf("stats[%d]", i)
		switch {
		case d.ID == "":
			v.warnf(path, "stat has no id")
		case v.stats[d.ID]:
			v.warnf(path, "duplicate stat id %q", d.ID)
		}
		v.stats[d.ID] = true
		if d.Min != nil && d.Max != nil && *d.Min > *d.Max {
			v.warnf(path, "stat %q has min %g greater than max %g", d.ID, *d.Min, *d.Max)
		}
	}
	for i, d := range v.doc.Inventory {
		path := fmt.Sprintf("inventory[%d]", i)
		switch {
		case d.ID == "":
			v.warnf(path, "item has no id")
		case v.items[d.ID]:
			v.warnf(path, "duplicate item id %q", d.ID)
		}
		v.items[d.ID] = true
		if d.MaxStack < 0 {
			v.warnf(path, "item %q has negative maxStack", d.ID)
		}
	}
	for _, d := range v.doc.Achievements {
		v.achieves[d.ID] = true
	}
}

// references walks every condition and action.
func (v *validator) references() {
	for i, d := range v.doc.Inventory {
		v.actions(fmt.Sprintf("inventory[%d].onUse", i), d.OnUse)
	}
	for _, s := range v.doc.Scenes {
		base := fmt.Sprintf("scenes[%s]", s.ID)
		v.actions(base+".onEnter", s.OnEnter)
		v.actions(base+".onExit", s.OnExit)
		for _, c := range s.Choices {
			path := fmt.Sprintf("%s.choices[%s]", base, c.ID)
			v.condition(path+".visibility", c.Visibility)
			v.condition(path+".requirements", c.Requirements)
			v.condition(path+".selectableIf", c.SelectableIf)
			v.actions(path+".actions", c.Actions)
			if c.IsSecret && adventure.IsEmpty(c.Visibility) {
				v.infof(path, "secret choice %q has no visibility condition and is discovered on sight", c.ID)
			}
			if c.Input != nil {
				v.input(path+".input", c.Input)
			}
		}
	}
}

func (v *validator) input(path string, in *adventure.InputSpec) {
	switch in.Kind {
	case adventure.InputStatic, adventure.InputText, adventure.InputNumber:
	case adventure.InputChoice:
		if len(in.Options) == 0 {
			v.warnf(path, "choice input has no options")
		}
	default:
		v.warnf(path, "unknown input kind %q", in.Kind)
	}
	if in.Target == "" && in.Kind != adventure.InputStatic {
		v.warnf(path, "input has no target stat")
	}
}

var knownOperators = map[adventure.Operator]bool{
	adventure.OpEquals: true, adventure.OpNotEquals: true,
	adventure.OpGreater: true, adventure.OpGreaterEq: true,
	adventure.OpLess: true, adventure.OpLessEq: true,
	adventure.OpContains: true, adventure.OpStartsWith: true,
	adventure.OpEndsWith: true, adventure.OpMatches: true,
	adventure.OpIn: true, adventure.OpNotIn: true,
	adventure.OpBetween: true, adventure.OpNotBetween: true,
}

func (v *validator) condition(path string, c adventure.Condition) {
	if c == nil {
		return
	}
	leaf := func(l adventure.Leaf) {
		if !knownOperators[l.Operator] {
			v.warnf(path, "unknown operator %q", l.Operator)
		}
	}
	switch n := c.(type) {
	case *adventure.Group:
		switch n.Logic {
		case adventure.LogicAnd, adventure.LogicOr, adventure.LogicNot,
			adventure.LogicXor, adventure.LogicNand, adventure.LogicNor:
		default:
			v.warnf(path, "unknown logic %q evaluates to false", n.Logic)
		}
		for i, child := range n.Conditions {
			v.condition(fmt.Sprintf("%s.conditions[%d]", path, i), child)
		}
	case *adventure.StatCondition:
		leaf(n.Leaf)
		if !v.stats[n.Key] {
			v.infof(path, "condition reads undeclared stat %q", n.Key)
		}
	case *adventure.FlagCondition:
		leaf(n.Leaf)
	case *adventure.SceneCondition:
		leaf(n.Leaf)
		if !v.scenes[n.Key] {
			v.warnf(path, "condition references unknown scene %q", n.Key)
		}
	case *adventure.InventoryCondition:
		leaf(n.Leaf)
		if (n.Kind == adventure.InventoryHas || n.Kind == adventure.InventoryCount) && !v.items[n.Key] {
			v.warnf(path, "condition references unknown item %q", n.Key)
		}
	case *adventure.HistoryCondition:
		leaf(n.Leaf)
		if n.Kind == adventure.HistorySceneVisitCount && !v.scenes[n.Key] {
			v.warnf(path, "condition references unknown scene %q", n.Key)
		}
	case *adventure.UnknownCondition:
		v.warnf(path, "unknown condition type %q evaluates to false", n.Type)
	}
}

func (v *validator) actions(path string, actions adventure.Actions) {
	for i, a := range actions {
		p := fmt.Sprintf("%s[%d]", path, i)
		meta := a.Meta()
		if meta.OneTime {
			switch prev, dup := v.oneTimeSeen[meta.ID]; {
			case meta.ID == "":
				v.warnf(p, "one-time action has no id and may repeat")
			case dup:
				v.warnf(p, "one-time action id %q is also used at %s", meta.ID, prev)
			default:
				v.oneTimeSeen[meta.ID] = p
			}
		}

		switch act := a.(type) {
		case *adventure.SetStat:
			v.statRef(p, act.Stat)
		case *adventure.AddStat:
			v.statRef(p, act.Stat)
		case *adventure.MultiplyStat:
			v.statRef(p, act.Stat)
		case *adventure.SetFlag, *adventure.ToggleFlag:
		case *adventure.AddInventory:
			v.itemRef(p, act.Item)
		case *adventure.RemoveInventory:
			v.itemRef(p, act.Item)
		case *adventure.SetInventory:
			v.itemRef(p, act.Item)
			if act.Quantity < 0 {
				v.warnf(p, "set_inventory with negative quantity %d always fails", act.Quantity)
			}
		case *adventure.AddAchievement:
			if !v.achieves[act.Achievement] {
				v.warnf(p, "achievement %q is not defined", act.Achievement)
			}
		case *adventure.UnknownAction:
			v.warnf(p, "unknown action type %q is ignored", act.Type)
		}
	}
}

func (v *validator) statRef(path, id string) {
	if id == "" {
		v.warnf(path, "stat action has no key")
	} else if !v.stats[id] {
		v.infof(path, "action creates undeclared stat %q", id)
	} else if id == inventory.TotalItemsStat {
		v.warnf(path, "stat %q mirrors the inventory total and is overwritten by the next inventory change", id)
	}
}

func (v *validator) itemRef(path, id string) {
	if !v.items[id] {
		v.warnf(path, "action references unknown item %q", id)
	}
}
