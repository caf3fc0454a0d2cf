package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidatesCurrency(t *testing.T) {
	m, err := New(1000, "krw")
	require.NoError(t, err)
	assert.Equal(t, "KRW", m.Currency)

	_, err = New(1000, "WON!")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestAddSub_CurrencyMismatch(t *testing.T) {
	_, err := Must(1, "KRW").Add(Must(1, "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	diff, err := Must(5000, "KRW").Sub(Must(1500, "KRW"))
	require.NoError(t, err)
	assert.Equal(t, int64(3500), diff.Amount)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, int64(25000), Must(50000, "KRW").Percent(50).Amount)
	assert.Equal(t, int64(0), Must(50000, "KRW").Percent(0).Amount)
	assert.Equal(t, int64(3), Must(7, "KRW").Percent(50).Amount)
}

func TestSum(t *testing.T) {
	total, err := Sum("KRW", Must(100, "KRW"), Must(250, "KRW"))
	require.NoError(t, err)
	assert.Equal(t, Must(350, "KRW"), total)

	empty, err := Sum("krw")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
	assert.Equal(t, "KRW", empty.Currency)
}
