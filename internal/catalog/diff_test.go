package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront-sync/internal/supplier"
)

func TestDiffClassification(t *testing.T) {
	local := []Product{
		{SKU: "A", Name: "a", PriceCents: 100, Stock: 5, Active: true},
		{SKU: "B", Name: "b", PriceCents: 200, Stock: 0, Active: true},
		{SKU: "C", Name: "c", PriceCents: 300, Stock: 1, Active: true},
	}
	remote := []supplier.RemoteProduct{
		{SKU: "A", Name: "a", PriceCents: 100, Stock: 5}, // unchanged
		{SKU: "B", Name: "b", PriceCents: 250, Stock: 0}, // price delta
		{SKU: "D", Name: "d", PriceCents: 50, Stock: 10}, // new
	}

	cs := Diff(local, remote)

	assert.Len(t, cs.New, 1)
	assert.Equal(t, "D", cs.New[0].SKU)

	assert.Len(t, cs.Changed, 1)
	assert.Equal(t, "B", cs.Changed[0].SKU)
	assert.Equal(t, 250, cs.Changed[0].PriceCents)

	assert.Equal(t, []string{"A"}, cs.UnchangedSKUs)

	assert.Len(t, cs.Stale, 1)
	assert.Equal(t, "C", cs.Stale[0].SKU)
}

func TestDiffCollapsesRemoteDuplicates(t *testing.T) {
	remote := []supplier.RemoteProduct{
		{SKU: "A", PriceCents: 100, Stock: 1},
		{SKU: "A", PriceCents: 999, Stock: 0}, // duplicate, first wins
		{SKU: "", PriceCents: 1},              // no SKU, dropped
	}
	cs := Diff(nil, remote)
	assert.Len(t, cs.New, 1)
	assert.Equal(t, 100, cs.New[0].PriceCents)
}

func TestDiffStockDeltaIsChange(t *testing.T) {
	local := []Product{{SKU: "A", Name: "a", PriceCents: 100, Stock: 5, Active: true}}
	remote := []supplier.RemoteProduct{{SKU: "A", Name: "a", PriceCents: 100, Stock: 4}}

	cs := Diff(local, remote)
	assert.Len(t, cs.Changed, 1)
	assert.Empty(t, cs.UnchangedSKUs)
}

func TestDiffReactivatesInactiveMatch(t *testing.T) {
	// A previously stale product that reappears remotely must come back
	// active even when nothing else changed.
	local := []Product{{SKU: "A", Name: "a", PriceCents: 100, Stock: 5, Active: false}}
	remote := []supplier.RemoteProduct{{SKU: "A", Name: "a", PriceCents: 100, Stock: 5}}

	cs := Diff(local, remote)
	assert.Len(t, cs.Changed, 1)
	assert.True(t, cs.Changed[0].Active)
}

func TestDiffIgnoresAlreadyInactiveStale(t *testing.T) {
	local := []Product{{SKU: "A", Active: false}}
	cs := Diff(local, nil)
	assert.Empty(t, cs.Stale)
}
