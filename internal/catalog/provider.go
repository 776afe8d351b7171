// Package catalog supplies the product items returned on search. The
// gateway core only depends on the Provider interface; ranking and
// sourcing live behind it.
package catalog

import (
	"context"
	"strings"
)

// Descriptor names an item for display and matching.
type Descriptor struct {
	Name      string `json:"name"`
	Code      string `json:"code,omitempty"`
	ShortDesc string `json:"short_desc,omitempty"`
}

// Price is the listed price of an item.
type Price struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

// Item is one catalog entry in the on_search payload shape.
type Item struct {
	ID         string     `json:"id"`
	Descriptor Descriptor `json:"descriptor"`
	Price      Price      `json:"price"`
	CategoryID string     `json:"category_id,omitempty"`
}

// Intent is the search filter extracted from message.intent.
type Intent struct {
	Name string
}

// Provider returns items for a search intent.
type Provider interface {
	Search(ctx context.Context, intent Intent) ([]Item, error)
}

// MemoryProvider serves a fixed in-memory product list. Matching is a
// case-insensitive substring check on the descriptor name; an empty
// intent returns the full list.
type MemoryProvider struct {
	items []Item
}

// NewMemoryProvider builds a provider over the given items, or over a
// small seeded list when none are supplied.
func NewMemoryProvider(items ...Item) *MemoryProvider {
	if len(items) == 0 {
		items = seedItems()
	}
	return &MemoryProvider{items: items}
}

func (p *MemoryProvider) Search(_ context.Context, intent Intent) ([]Item, error) {
	if intent.Name == "" {
		return append([]Item{}, p.items...), nil
	}
	needle := strings.ToLower(intent.Name)
	var out []Item
	for _, item := range p.items {
		if strings.Contains(strings.ToLower(item.Descriptor.Name), needle) {
			out = append(out, item)
		}
	}
	return out, nil
}

func seedItems() []Item {
	return []Item{
		{
			ID:         "item-001",
			Descriptor: Descriptor{Name: "Laptop", Code: "ELEC-LAP-14"},
			Price:      Price{Currency: "INR", Value: "52999"},
			CategoryID: "electronics",
		},
		{
			ID:         "item-002",
			Descriptor: Descriptor{Name: "Laptop Sleeve", Code: "ACC-SLV-14"},
			Price:      Price{Currency: "INR", Value: "899"},
			CategoryID: "accessories",
		},
		{
			ID:         "item-003",
			Descriptor: Descriptor{Name: "Wireless Mouse", Code: "ACC-MOU-01"},
			Price:      Price{Currency: "INR", Value: "649"},
			CategoryID: "accessories",
		},
		{
			ID:         "item-004",
			Descriptor: Descriptor{Name: "Mechanical Keyboard", Code: "ACC-KEY-87"},
			Price:      Price{Currency: "INR", Value: "3499"},
			CategoryID: "accessories",
		},
	}
}
