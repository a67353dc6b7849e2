package core

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanPercent(t *testing.T) {
	cases := []struct {
		name             string
		target, progress int64
		want             int
	}{
		{"empty", 10000, 0, 0},
		{"half", 10000, 5000, 50},
		{"rounds down", 300, 200, 66},
		{"just below full", 10000, 9999, 99},
		{"full", 10000, 10000, 100},
		{"overshoot clamps", 10000, 25000, 100},
		{"zero target", 0, 100, 0},
		{"huge target never rounds up", math.MaxInt64, math.MaxInt64 - 1, 99},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Plan{Target: Money{Cents: tc.target}, Progress: Money{Cents: tc.progress}}
			assert.Equal(t, tc.want, p.Percent())
			assert.Len(t, p.BarSegments(), tc.want)
		})
	}
}

func TestTransactionSigned(t *testing.T) {
	in := Transaction{Amount: Money{Cents: 500}, IsIncome: true}
	out := Transaction{Amount: Money{Cents: 500}}
	assert.Equal(t, int64(500), in.Signed().Cents)
	assert.Equal(t, int64(-500), out.Signed().Cents)
	assert.Equal(t, "Receita", in.Kind())
	assert.Equal(t, "Despesa", out.Kind())
}

func TestTransactionInputValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		v, err := TransactionInput{Amount: "12.50", Description: "  Mercado ", IsIncome: true}.Validate()
		require.NoError(t, err)
		assert.Equal(t, int64(1250), v.Amount.Cents)
		assert.Equal(t, "Mercado", v.Description)
		assert.True(t, v.IsIncome)
	})

	for _, amount := range []string{"0", "-5", "", "doze"} {
		t.Run("amount "+amount, func(t *testing.T) {
			_, err := TransactionInput{Amount: amount, Description: "x"}.Validate()
			ve, ok := AsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.NotEmpty(t, ve.Field(FieldAmount))
			assert.Empty(t, ve.Field(FieldDescription))
		})
	}

	t.Run("all fields reported", func(t *testing.T) {
		_, err := TransactionInput{Amount: "0", Description: " "}.Validate()
		ve, ok := AsValidation(err)
		require.True(t, ok)
		assert.Len(t, ve.Fields, 2)
	})

	t.Run("description too long", func(t *testing.T) {
		_, err := TransactionInput{Amount: "1", Description: strings.Repeat("a", MaxDescriptionLen+1)}.Validate()
		ve, ok := AsValidation(err)
		require.True(t, ok)
		assert.Contains(t, ve.Field(FieldDescription), "200")
	})
}

func TestPlanInputValidate(t *testing.T) {
	v, err := PlanInput{Target: "1000,00", Progress: "", Description: "Viagem"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, int64(100000), v.Target.Cents)
	assert.Zero(t, v.Progress.Cents)

	v, err = PlanInput{Target: "1000", Progress: "0,00", Description: "Viagem"}.Validate()
	require.NoError(t, err)
	assert.Zero(t, v.Progress.Cents)

	for _, progress := range []string{".", "0.0.0", ",,", "0,0,0"} {
		_, err = PlanInput{Target: "1000", Progress: progress, Description: "Viagem"}.Validate()
		ve, ok := AsValidation(err)
		require.True(t, ok, "progress %q", progress)
		assert.NotEmpty(t, ve.Field(FieldProgress), "progress %q", progress)
	}

	_, err = PlanInput{Target: "0", Progress: "-1", Description: ""}.Validate()
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.NotEmpty(t, ve.Field(FieldTarget))
	assert.NotEmpty(t, ve.Field(FieldProgress))
	assert.NotEmpty(t, ve.Field(FieldDescription))
	assert.Contains(t, err.Error(), "descricao")
}

func TestRegistrationInputValidate(t *testing.T) {
	ok := RegistrationInput{Username: "ana", Password: "pass123", Confirm: "pass123"}
	require.NoError(t, ok.Validate())

	withEmail := ok
	withEmail.Email = "ana@example.com"
	require.NoError(t, withEmail.Validate())

	cases := map[string]RegistrationInput{
		FieldUsername: {Username: "an", Password: "pass123", Confirm: "pass123"},
		FieldEmail:    {Username: "ana", Email: "ana.example.com", Password: "pass123", Confirm: "pass123"},
		FieldPassword: {Username: "ana", Password: "12345", Confirm: "12345"},
		FieldConfirm:  {Username: "ana", Password: "pass123", Confirm: "pass124"},
	}
	long := strings.Repeat("a", MaxPasswordBytes+8)
	ve, isValidation := AsValidation(RegistrationInput{Username: "ana", Password: long, Confirm: long}.Validate())
	require.True(t, isValidation)
	assert.Contains(t, ve.Field(FieldPassword), "72")

	for field, in := range cases {
		t.Run(field, func(t *testing.T) {
			ve, ok := AsValidation(in.Validate())
			require.True(t, ok)
			assert.NotEmpty(t, ve.Field(field))
		})
	}
}

func TestQuotes(t *testing.T) {
	qs := Quotes()
	require.Len(t, qs, 11)
	qs[0].Text = "mutated"
	assert.NotEqual(t, "mutated", Quotes()[0].Text)

	assert.Equal(t, Quotes()[3], PickQuote(func(int) int { return 3 }))
	assert.Equal(t, Quotes()[0], PickQuote(func(n int) int { return n }))
	assert.Equal(t, Quotes()[10], PickQuote(func(int) int { return -1 }))
	assert.NotPanics(t, func() { PickQuote(func(int) int { return math.MinInt }) })
	for range 20 {
		q := PickQuote(nil)
		assert.NotEmpty(t, q.Text)
		assert.NotEmpty(t, q.Author)
	}
}
