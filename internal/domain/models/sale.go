package models

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SaleLineRequest is one parsed "<name> <qty> <price>" entry from a sales message.
type SaleLineRequest struct {
	Query     string          `json:"query"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

var saleLinePattern = regexp.MustCompile(`^(.+?)\s+(\d+)\s+([\d.]+)$`)

// ParseSaleLines splits a message into lines and returns every line that parses.
func ParseSaleLines(message string) []SaleLineRequest {
	var entries []SaleLineRequest
	for _, line := range strings.Split(strings.TrimSpace(message), "\n") {
		if entry, ok := ParseSaleLine(line); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// ParseSaleLine parses a single line. The anchored pattern is tried first and a
// whitespace split of the trailing two tokens is used when it does not match.
func ParseSaleLine(line string) (SaleLineRequest, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return SaleLineRequest{}, false
	}

	if m := saleLinePattern.FindStringSubmatch(line); m != nil {
		if entry, ok := buildSaleLine(m[1], m[2], m[3]); ok {
			return entry, true
		}
	}

	parts := strings.Fields(line)
	if len(parts) < 3 {
		return SaleLineRequest{}, false
	}
	return buildSaleLine(strings.Join(parts[:len(parts)-2], " "), parts[len(parts)-2], parts[len(parts)-1])
}

// IsSalesMessage reports whether at least one line of message is a sale entry.
func IsSalesMessage(message string) bool {
	for _, line := range strings.Split(strings.TrimSpace(message), "\n") {
		if _, ok := ParseSaleLine(line); ok {
			return true
		}
	}
	return false
}

func buildSaleLine(name, qtyText, priceText string) (SaleLineRequest, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SaleLineRequest{}, false
	}

	qty, err := strconv.Atoi(qtyText)
	if err != nil || qty <= 0 {
		return SaleLineRequest{}, false
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil || price.IsNegative() {
		return SaleLineRequest{}, false
	}

	return SaleLineRequest{Query: name, Quantity: qty, UnitPrice: price}, true
}
