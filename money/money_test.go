package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDiscounted(t *testing.T) {
	d, err := Discounted(dec("20"), 25)
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(d), d.String())

	d, err = Discounted(dec("9.99"), 0)
	require.NoError(t, err)
	assert.True(t, dec("9.99").Equal(d))

	d, err = Discounted(dec("9.99"), 100)
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = Discounted(dec("1"), 101)
	assert.ErrorIs(t, err, ErrInvalidDiscount)
	_, err = Discounted(dec("1"), -1)
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	assert.Panics(t, func() { MustDiscounted(dec("1"), 200) })
}

func TestLineAndSum(t *testing.T) {
	l, err := Line(dec("0.10"), 3)
	require.NoError(t, err)
	assert.Equal(t, "0.30", l.StringFixed(2))

	_, err = Line(dec("1"), -1)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	total := Sum(dec("0.10"), dec("0.20"), l)
	assert.True(t, dec("0.6").Equal(total), total.String())
	assert.True(t, Sum().IsZero())
}

func TestRender(t *testing.T) {
	assert.Equal(t, "12.50 $", Render(dec("12.5")))
	assert.Equal(t, "0.00 $", Render(decimal.Zero))
}
