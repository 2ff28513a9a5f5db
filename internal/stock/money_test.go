package stock

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotal(t *testing.T) {
	d := decimal.RequireFromString

	cases := []struct {
		name     string
		price    string
		qty      int
		discount string
		tax      string
		want     string
	}{
		{"plain", "12.50", 4, "0", "0", "50"},
		{"discount", "100", 2, "10", "0", "180"},
		{"tax", "100", 1, "0", "18", "118"},
		{"both", "19.99", 3, "5", "8", "61.77"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeTotal(d(tc.price), tc.qty, d(tc.discount), d(tc.tax))
			assert.True(t, d(tc.want).Equal(got), "got %s want %s", got, tc.want)
		})
	}
}
