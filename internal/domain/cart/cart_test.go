package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagerent/internal/domain/shared/daterange"
	"stagerent/internal/domain/shared/money"
)

var now = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestAddItem_MergesSameProductAndRange(t *testing.T) {
	c, err := New("c1", "user-1", now)
	require.NoError(t, err)
	r := daterange.Must(now.AddDate(0, 0, 5), now.AddDate(0, 0, 6))

	_, err = c.AddItem(AddItemParams{ID: "i1", ProductID: "p1", Quantity: 1, Range: r, PriceSnapshot: money.Must(100, "KRW"), Now: now})
	require.NoError(t, err)
	merged, err := c.AddItem(AddItemParams{ID: "i2", ProductID: "p1", Quantity: 2, Range: r, PriceSnapshot: money.Must(100, "KRW"), Now: now})
	require.NoError(t, err)

	assert.Equal(t, ItemID("i1"), merged.ID)
	assert.Equal(t, 3, merged.Quantity)
	assert.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.QuantityFor("p1", r))

	other := daterange.Must(now.AddDate(0, 0, 7), now.AddDate(0, 0, 7))
	_, err = c.AddItem(AddItemParams{ID: "i3", ProductID: "p1", Quantity: 1, Range: other, Now: now})
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)
	assert.Len(t, c.ProductIDs(), 1)
}

func TestAddItem_RejectsBadQuantity(t *testing.T) {
	c, _ := New("c1", "user-1", now)
	_, err := c.AddItem(AddItemParams{ID: "i1", ProductID: "p1", Quantity: 0, Range: daterange.Must(now, now)})
	assert.ErrorIs(t, err, ErrQuantity)
}

func TestUpdateRemoveClear(t *testing.T) {
	c, _ := New("c1", "user-1", now)
	r := daterange.Must(now, now)
	_, err := c.AddItem(AddItemParams{ID: "i1", ProductID: "p1", Quantity: 1, Range: r, Now: now})
	require.NoError(t, err)

	require.NoError(t, c.UpdateQuantity("i1", 4, now))
	item, err := c.Item("i1")
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)

	assert.ErrorIs(t, c.UpdateQuantity("missing", 1, now), ErrItemNotFound)
	require.NoError(t, c.RemoveItem("i1", now))
	assert.True(t, c.Empty())

	_, _ = c.AddItem(AddItemParams{ID: "i2", ProductID: "p2", Quantity: 1, Range: r, Now: now})
	c.Clear(now)
	assert.True(t, c.Empty())
}
