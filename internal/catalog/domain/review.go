package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID               int64
	ProductID        int64
	UserID           string
	Rating           int
	Text             string
	VerifiedPurchase bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type ReviewStats struct {
	Total   int
	Average decimal.Decimal
	// Distribution[i] counts reviews rated i+1.
	Distribution [MaxRating]int
	Verified     int
}

// Tally adds count reviews rated rating, verified of them from buyers, and
// recomputes the average to two places.
func (s *ReviewStats) Tally(rating, count, verified int) {
	if rating < MinRating || rating > MaxRating || count <= 0 {
		return
	}
	s.Distribution[rating-1] += count
	s.Total += count
	s.Verified += verified

	sum := 0
	for i, n := range s.Distribution {
		sum += (i + 1) * n
	}
	s.Average = decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(s.Total))).Round(2)
}
