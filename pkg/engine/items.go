package engine

import "fmt"

// ItemUse describes the effect of using an item.
type ItemUse struct {
	ItemID    string         `json:"itemId"`
	Results   []ActionResult `json:"results,omitempty"`
	Consumed  bool           `json:"consumed"`
	Remaining int            `json:"remaining"`
}

// UseItem runs a held item's on-use actions and consumes one unit when the
// item is consumable.
func (e *Engine) UseItem(itemID string) (*ItemUse, error) {
	if e.doc == nil {
		return nil, ErrNotLoaded
	}
	def, ok := e.doc.Item(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, itemID)
	}
	if !e.inventory.Has(itemID) {
		return nil, fmt.Errorf("%w: %q", ErrItemNotHeld, itemID)
	}

	use := &ItemUse{ItemID: itemID}
	if len(def.OnUse) > 0 {
		use.Results = e.ExecuteActions(def.OnUse)
	}
	if def.Consumable {
		use.Consumed = e.inventory.Remove(itemID, 1).Success
		e.invalidate()
	}
	use.Remaining = e.inventory.Quantity(itemID)
	if scene, ok := e.CurrentScene(); ok {
		e.scanDiscoveries(scene)
	}

	e.logger.Debug("Item used", "item", itemID, "consumed", use.Consumed, "remaining", use.Remaining)
	return use, nil
}
