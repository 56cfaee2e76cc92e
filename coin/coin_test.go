package coin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/drip-pay/drip/errors"
)

func TestCoinAdd(t *testing.T) {
	a := NewCoin(100, "DRIP")
	b := NewCoin(25, "DRIP")

	sum, err := a.Add(b)
	assert.NoError(t, err)
	assert.Equal(t, NewCoin(125, "DRIP"), sum)

	_, err = a.Add(NewCoin(1, "IOV"))
	assert.True(t, errors.ErrCurrency.Is(err))
}

func TestCoinAddOverflow(t *testing.T) {
	a := NewCoin(math.MaxInt64, "DRIP")
	_, err := a.Add(NewCoin(1, "DRIP"))
	assert.True(t, errors.ErrOverflow.Is(err))

	b := NewCoin(math.MinInt64, "DRIP")
	_, err = b.Subtract(NewCoin(1, "DRIP"))
	assert.True(t, errors.ErrOverflow.Is(err))
}

func TestCoinSubtract(t *testing.T) {
	a := NewCoin(100, "DRIP")
	diff, err := a.Subtract(NewCoin(150, "DRIP"))
	assert.NoError(t, err)
	assert.Equal(t, NewCoin(-50, "DRIP"), diff)
	assert.False(t, diff.IsNonNegative())
}

func TestCoinMultiply(t *testing.T) {
	cases := map[string]struct {
		coin    Coin
		times   int64
		want    Coin
		wantErr *errors.Error
	}{
		"simple": {
			coin:  NewCoin(7, "DRIP"),
			times: 3,
			want:  NewCoin(21, "DRIP"),
		},
		"zero times": {
			coin:  NewCoin(7, "DRIP"),
			times: 0,
			want:  NewCoin(0, "DRIP"),
		},
		"overflow": {
			coin:    NewCoin(math.MaxInt64/2+1, "DRIP"),
			times:   2,
			wantErr: errors.ErrOverflow,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := tc.coin.Multiply(tc.times)
			if tc.wantErr != nil {
				assert.True(t, tc.wantErr.Is(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCoinDivide(t *testing.T) {
	whole, rem, err := NewCoin(10, "DRIP").Divide(3)
	assert.NoError(t, err)
	assert.Equal(t, NewCoin(3, "DRIP"), whole)
	assert.Equal(t, NewCoin(1, "DRIP"), rem)

	_, _, err = NewCoin(10, "DRIP").Divide(0)
	assert.True(t, errors.ErrInput.Is(err))
}

func TestCoinCompare(t *testing.T) {
	assert.Equal(t, -1, NewCoin(1, "DRIP").Compare(NewCoin(2, "DRIP")))
	assert.Equal(t, 0, NewCoin(2, "DRIP").Compare(NewCoin(2, "DRIP")))
	assert.Equal(t, 1, NewCoin(3, "DRIP").Compare(NewCoin(2, "DRIP")))
	assert.True(t, NewCoin(2, "DRIP").IsGTE(NewCoin(2, "DRIP")))
	assert.False(t, NewCoin(2, "DRIP").IsGTE(NewCoin(2, "IOV")))
}

func TestCoinValidate(t *testing.T) {
	assert.NoError(t, NewCoin(1, "DRIP").Validate())
	assert.Error(t, NewCoin(1, "drip").Validate())
	assert.Error(t, NewCoin(1, "TOOLONG").Validate())
	assert.Error(t, NewCoin(1, "").Validate())
}

func TestCoinsNormalize(t *testing.T) {
	cs, err := NormalizeCoins([]Coin{
		NewCoin(5, "IOV"),
		NewCoin(3, "DRIP"),
		NewCoin(-3, "DRIP"),
		NewCoin(2, "ETH"),
	})
	assert.NoError(t, err)
	assert.Equal(t, Coins{NewCoin(2, "ETH"), NewCoin(5, "IOV")}, cs)
	assert.NoError(t, cs.Validate())
}

func TestCoinsAddAndContains(t *testing.T) {
	cs, err := NormalizeCoins([]Coin{NewCoin(10, "DRIP")})
	assert.NoError(t, err)

	cs, err = cs.Add(NewCoin(-4, "DRIP"))
	assert.NoError(t, err)
	assert.Equal(t, NewCoin(6, "DRIP"), cs.Amount("DRIP"))
	assert.True(t, cs.Contains(NewCoin(6, "DRIP")))
	assert.False(t, cs.Contains(NewCoin(7, "DRIP")))
	assert.False(t, cs.Contains(NewCoin(1, "IOV")))

	cs, err = cs.Add(NewCoin(-10, "DRIP"))
	assert.NoError(t, err)
	assert.False(t, cs.IsNonNegative())
}
