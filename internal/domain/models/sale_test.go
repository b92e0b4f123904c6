package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseSaleLine(t *testing.T) {
	cases := []struct {
		line  string
		ok    bool
		query string
		qty   int
		price string
	}{
		{line: "crocin 10 150", ok: true, query: "crocin", qty: 10, price: "150"},
		{line: "B Complex Syrup 2 45.50", ok: true, query: "B Complex Syrup", qty: 2, price: "45.5"},
		{line: "  dolo 650   3  20  ", ok: true, query: "dolo 650", qty: 3, price: "20"},
		{line: "onlytext", ok: false},
		{line: "crocin 10", ok: false},
		{line: "crocin 0 150", ok: false},
		{line: "crocin ten 150", ok: false},
		{line: "crocin 2 abc", ok: false},
		{line: "", ok: false},
	}

	for _, tc := range cases {
		got, ok := ParseSaleLine(tc.line)
		if ok != tc.ok {
			t.Fatalf("ParseSaleLine(%q) ok = %v, want %v", tc.line, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if got.Query != tc.query || got.Quantity != tc.qty {
			t.Fatalf("ParseSaleLine(%q) = %+v", tc.line, got)
		}
		if !got.UnitPrice.Equal(decimal.RequireFromString(tc.price)) {
			t.Fatalf("ParseSaleLine(%q) price = %s, want %s", tc.line, got.UnitPrice, tc.price)
		}
	}
}

func TestParseSaleLinesSkipsUnparseable(t *testing.T) {
	lines := ParseSaleLines("crocin 10 150\nnonsense\n\ndolo 5 25")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(lines), lines)
	}
	if lines[0].Query != "crocin" || lines[1].Query != "dolo" {
		t.Fatalf("unexpected order %+v", lines)
	}
}

func TestIsSalesMessage(t *testing.T) {
	if !IsSalesMessage("crocin 10 150\nnonsense") {
		t.Fatalf("one parseable line should make a sales message")
	}
	if IsSalesMessage("hello there\nhow are you") {
		t.Fatalf("plain chat is not a sales message")
	}
}
