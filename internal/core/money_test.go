package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12,344", 1234, true},
		{" 2.50 ", 250, true},
		{"12.50", 1250, true},
		{"0.001", 0, false}, // rounds to zero
		{"-1", 0, false},
		{"-5", 0, false},
		{"+5", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1e3", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyFormatting(t *testing.T) {
	cases := []struct {
		cents int64
		str   string
		brl   string
	}{
		{0, "0.00", "R$ 0,00"},
		{705, "7.05", "R$ 7,05"},
		{123456, "1234.56", "R$ 1.234,56"},
		{100000000, "1000000.00", "R$ 1.000.000,00"},
		{-300, "-3.00", "-R$ 3,00"},
	}
	for _, tc := range cases {
		m := Money{Cents: tc.cents}
		if got := m.String(); got != tc.str {
			t.Errorf("String(%d) = %q, want %q", tc.cents, got, tc.str)
		}
		if got := m.BRL(); got != tc.brl {
			t.Errorf("BRL(%d) = %q, want %q", tc.cents, got, tc.brl)
		}
	}
}

func TestBalanceIsExact(t *testing.T) {
	income, _ := ParseMoney("10.10")
	expense, _ := ParseMoney("3.05")
	b := NewBalance(income, expense)
	if b.Net.Cents != 705 || b.Net.String() != "7.05" {
		t.Fatalf("net = %s (%d cents), want 7.05", b.Net, b.Net.Cents)
	}
}

func TestParseDecimalToCentsCapsAmounts(t *testing.T) {
	got, err := ParseDecimalToCents("100000000000.00")
	if err != nil || got != MaxAmountCents {
		t.Fatalf("largest amount: got %d (err=%v), want %d", got, err, MaxAmountCents)
	}
	for _, in := range []string{"100000000000.01", "90000000000000000"} {
		if _, err := ParseDecimalToCents(in); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", in, err)
		}
	}
}
