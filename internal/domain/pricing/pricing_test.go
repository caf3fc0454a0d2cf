package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagerent/internal/domain/shared/daterange"
	"stagerent/internal/domain/shared/money"
)

func TestSubtotal(t *testing.T) {
	r, err := daterange.Parse("2025-01-10", "2025-01-12")
	require.NoError(t, err)

	line, err := Subtotal(money.Must(20000, "KRW"), r, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Days)
	assert.Equal(t, int64(120000), line.Subtotal.Amount)

	_, err = Subtotal(money.Must(20000, "KRW"), r, 0)
	assert.ErrorIs(t, err, ErrQuantity)
}

func TestQuote_AddsShipping(t *testing.T) {
	r, err := daterange.Parse("2025-01-10", "2025-01-10")
	require.NoError(t, err)
	line, err := Subtotal(money.Must(10000, "KRW"), r, 1)
	require.NoError(t, err)

	cases := map[DeliveryMethod]int64{
		DeliveryQuick:  25000,
		DeliveryParcel: 15000,
		DeliveryBundle: 10000,
	}
	for method, want := range cases {
		b, err := Quote("KRW", method, line)
		require.NoError(t, err)
		assert.Equal(t, want, b.Total.Amount, method)
	}
}

func TestParseDeliveryMethod(t *testing.T) {
	m, err := ParseDeliveryMethod("")
	require.NoError(t, err)
	assert.Equal(t, DeliveryParcel, m)

	_, err = ParseDeliveryMethod("drone")
	assert.ErrorIs(t, err, ErrDeliveryMethod)
}
