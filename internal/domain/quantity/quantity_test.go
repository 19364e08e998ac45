package quantity

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/jhoicas/bar-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RechazaNegativos(t *testing.T) {
	_, err := New(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	q, err := New(decimal.Zero)
	require.NoError(t, err)
	assert.True(t, q.IsZero())
}

func TestFromFloat_NoFinitos(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := FromFloat(f)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity, "%v", f)
	}
	q, err := FromFloat(12.5)
	require.NoError(t, err)
	assert.Equal(t, "12.5", q.String())
}

func TestParse(t *testing.T) {
	q, err := Parse(" 70 ")
	require.NoError(t, err)
	assert.True(t, q.Equal(MustParse("70.000")))

	_, err = Parse("setenta")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = Parse("-3")
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestSub_NoProduceNegativos(t *testing.T) {
	a, b := MustParse("5"), MustParse("7.5")
	assert.True(t, a.WouldUnderflow(b))
	_, err := a.Sub(b)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	r, err := b.Sub(a)
	require.NoError(t, err)
	assert.Equal(t, "2.5", r.String())
}

func TestDeltaYApply(t *testing.T) {
	from, to := MustParse("70"), MustParse("50")
	d := Delta(from, to)
	assert.True(t, d.Equal(decimal.NewFromInt(-20)))

	back, err := from.Apply(d)
	require.NoError(t, err)
	assert.True(t, back.Equal(to))

	_, err = to.Apply(decimal.NewFromInt(-51))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Q Quantity `json:"q"`
	}{MustParse("33.3")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"q":33.3}`, string(b))

	var v struct {
		Q Quantity `json:"q"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"q":"12.25"}`), &v))
	assert.Equal(t, "12.25", v.Q.String())
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"q":-1}`), &v), domain.ErrInvalidQuantity)
}
