// Package bill splits a restaurant bill between session members.
package bill

import (
	"strings"

	"bitvote/internal/apperror"

	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	maxTipRate = decimal.NewFromInt(100)
)

type SplitRequest struct {
	Total      decimal.Decimal `json:"total"`
	TipPercent decimal.Decimal `json:"tipPercent"`
	Members    []string        `json:"members"`
}

type Share struct {
	Member string          `json:"member"`
	Amount decimal.Decimal `json:"amount"`
}

type Split struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tip      decimal.Decimal `json:"tip"`
	Total    decimal.Decimal `json:"total"`
	Shares   []Share         `json:"shares"`
}

// Calculate splits total plus tip evenly in whole cents. Leftover cents go
// one each to the first members, so shares always sum to the total.
func Calculate(req SplitRequest) (*Split, error) {
	members := make([]string, 0, len(req.Members))
	for _, m := range req.Members {
		if m = strings.TrimSpace(m); m != "" {
			members = append(members, m)
		}
	}

	subtotal := req.Total.Round(2)

	switch {
	case !subtotal.IsPositive():
		return nil, apperror.InvalidInput("total must be at least 0.01")
	case req.TipPercent.IsNegative() || req.TipPercent.GreaterThan(maxTipRate):
		return nil, apperror.InvalidInput("tipPercent must be between 0 and 100")
	case len(members) == 0:
		return nil, apperror.InvalidInput("at least one member is required")
	}

	tip := subtotal.Mul(req.TipPercent).Div(hundred).Round(2)
	total := subtotal.Add(tip)

	cents := total.Mul(hundred).IntPart()
	n := int64(len(members))
	base := cents / n
	remainder := cents % n

	shares := make([]Share, len(members))
	for i, m := range members {
		c := base
		if int64(i) < remainder {
			c++
		}
		shares[i] = Share{Member: m, Amount: decimal.New(c, -2)}
	}

	return &Split{
		Subtotal: subtotal,
		Tip:      tip,
		Total:    total,
		Shares:   shares,
	}, nil
}
