package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProviderMatchesByName(t *testing.T) {
	p := NewMemoryProvider()

	items, err := p.Search(context.Background(), Intent{Name: "laptop"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Laptop", items[0].Descriptor.Name)
	assert.Equal(t, "Laptop Sleeve", items[1].Descriptor.Name)
}

func TestMemoryProviderEmptyIntentReturnsAll(t *testing.T) {
	p := NewMemoryProvider()
	items, err := p.Search(context.Background(), Intent{})
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestMemoryProviderNoMatch(t *testing.T) {
	p := NewMemoryProvider()
	items, err := p.Search(context.Background(), Intent{Name: "submarine"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryProviderCustomItems(t *testing.T) {
	p := NewMemoryProvider(Item{ID: "x", Descriptor: Descriptor{Name: "Widget"}})
	items, err := p.Search(context.Background(), Intent{Name: "widget"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "x", items[0].ID)
}
