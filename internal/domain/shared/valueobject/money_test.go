package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromFloat(100.50), TRY)
	require.NoError(t, err)
	assert.Equal(t, TRY, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
}

func TestNewMoney_EmptyCurrency(t *testing.T) {
	_, err := NewMoney(decimal.NewFromInt(1), "")
	assert.Error(t, err)
}

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyFromString("1234.5678", USD)
	require.NoError(t, err)
	assert.Equal(t, "1234.5678", m.Amount().String())

	_, err = NewMoneyFromString("not-a-number", USD)
	assert.Error(t, err)
}

func TestMoney_Add(t *testing.T) {
	a := NewMoneyTRYFromFloat(100.00)
	b := NewMoneyTRYFromFloat(50.25)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "150.25", sum.Amount().String())
}

func TestMoney_Add_CurrencyMismatch(t *testing.T) {
	a := NewMoneyTRYFromFloat(100.00)
	b, _ := NewMoneyFromFloat(50.00, USD)

	_, err := a.Add(b)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "different currencies")
}

func TestMoney_Subtract(t *testing.T) {
	a := NewMoneyTRYFromFloat(100.00)
	b := NewMoneyTRYFromFloat(30.00)

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, "70", diff.Amount().String())

	c, _ := NewMoneyFromFloat(30.00, EUR)
	_, err = a.Subtract(c)
	assert.Error(t, err)
}

func TestMoney_Convert(t *testing.T) {
	usd, err := NewMoneyFromFloat(100.00, USD)
	require.NoError(t, err)

	converted, err := usd.Convert(decimal.NewFromFloat(30.00), TRY)
	require.NoError(t, err)
	assert.Equal(t, TRY, converted.Currency())
	assert.Equal(t, "3000", converted.Amount().String())
}

func TestMoney_Convert_SameCurrency(t *testing.T) {
	m := NewMoneyTRYFromFloat(42.00)
	converted, err := m.Convert(decimal.NewFromInt(1), TRY)
	require.NoError(t, err)
	assert.True(t, m.Equals(converted))
}

func TestMoney_Convert_InvalidRate(t *testing.T) {
	usd, _ := NewMoneyFromFloat(100.00, USD)

	_, err := usd.Convert(decimal.Zero, TRY)
	assert.Error(t, err)

	_, err = usd.Convert(decimal.NewFromInt(-1), TRY)
	assert.Error(t, err)
}

func TestMoney_Negate(t *testing.T) {
	m := NewMoneyTRYFromFloat(10.00)
	n := m.Negate()
	assert.True(t, n.IsNegative())
	assert.True(t, n.Negate().Equals(m))
}

func TestMoney_Comparisons(t *testing.T) {
	a := NewMoneyTRYFromFloat(10.00)
	b := NewMoneyTRYFromFloat(20.00)

	lt, err := a.LessThan(b)
	require.NoError(t, err)
	assert.True(t, lt)

	gt, err := b.GreaterThan(a)
	require.NoError(t, err)
	assert.True(t, gt)

	c, _ := NewMoneyFromFloat(10.00, JPY)
	_, err = a.LessThan(c)
	assert.Error(t, err)
}

func TestMoney_RoundBank(t *testing.T) {
	m, _ := NewMoneyFromString("10.125", TRY)
	assert.Equal(t, "10.12", m.RoundBank(2).Amount().String())

	m2, _ := NewMoneyFromString("10.135", TRY)
	assert.Equal(t, "10.14", m2.RoundBank(2).Amount().String())
}

func TestMoney_String(t *testing.T) {
	m := NewMoneyTRYFromFloat(1000.5)
	assert.Equal(t, "1000.50 TRY", m.String())
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m, _ := NewMoneyFromString("99.99", USD)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var out Money
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, m.Equals(out))
}

func TestParseMoneyFromJSON(t *testing.T) {
	m, err := ParseMoneyFromJSON([]byte(`{"amount":"150.00","currency":"TRY"}`))
	require.NoError(t, err)
	assert.Equal(t, "150.00 TRY", m.String())

	_, err = ParseMoneyFromJSON([]byte(`{"amount":"150.00","currency":""}`))
	assert.Error(t, err)
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("123.45"))
	assert.Equal(t, DefaultCurrency, m.Currency())
	assert.Equal(t, "123.45", m.Amount().String())

	var empty Money
	require.NoError(t, empty.Scan(nil))
	assert.True(t, empty.IsZero())

	assert.Error(t, m.Scan(42))
}

func TestMoney_Zero(t *testing.T) {
	z := ZeroTRY()
	assert.True(t, z.IsZero())
	assert.Equal(t, TRY, z.Currency())
}
