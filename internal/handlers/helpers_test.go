package handlers

import "testing"

func TestParseRupees(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "whole rupees", input: "350", want: 35000},
		{name: "two decimals", input: "371.70", want: 37170},
		{name: "one decimal", input: "12.7", want: 1270},
		{name: "zero", input: "0", want: 0},
		{name: "leading dot", input: ".50", want: 50},
		{name: "negative", input: "-5.25", want: -525},
		{name: "padded", input: "  100.00  ", want: 10000},
		{name: "three decimals", input: "12.345", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "bare dot", input: ".", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseRupees(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRupees(%q): %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("parseRupees(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}

func TestFormatPaise(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{amount: 37170, want: "371.70"},
		{amount: 35000, want: "350.00"},
		{amount: 5, want: "0.05"},
		{amount: 0, want: "0.00"},
		{amount: -525, want: "-5.25"},
	}

	for _, tc := range cases {
		if got := formatPaise(tc.amount); got != tc.want {
			t.Fatalf("formatPaise(%d) = %s, want %s", tc.amount, got, tc.want)
		}
	}
}

func TestParseFilterValues(t *testing.T) {
	got := parseFilterValues([]string{"Ready, completed", "ready", ""})
	if len(got) != 2 || got[0] != "ready" || got[1] != "completed" {
		t.Fatalf("unexpected filters %v", got)
	}
}
