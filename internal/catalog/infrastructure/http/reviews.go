package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/storefront/internal/catalog/application"
	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/identity"
)

type reviewResponse struct {
	ID               int64     `json:"id"`
	ProductID        int64     `json:"product"`
	User             string    `json:"user"`
	Rating           int       `json:"rating"`
	Text             string    `json:"review_text"`
	VerifiedPurchase bool      `json:"is_verified_purchase"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toReview(rv domain.Review) reviewResponse {
	return reviewResponse{
		ID:               rv.ID,
		ProductID:        rv.ProductID,
		User:             rv.UserID,
		Rating:           rv.Rating,
		Text:             rv.Text,
		VerifiedPurchase: rv.VerifiedPurchase,
		CreatedAt:        rv.CreatedAt,
		UpdatedAt:        rv.UpdatedAt,
	}
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	reviews, err := h.service.ListReviews(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	out := make([]reviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, toReview(rv))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) reviewStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	stats, err := h.service.ReviewStats(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	dist := make(map[string]int, domain.MaxRating)
	for i, n := range stats.Distribution {
		dist[fmt.Sprintf("%d_star", i+1)] = n
	}
	httpx.JSON(w, http.StatusOK, struct {
		Total        int             `json:"total_reviews"`
		Average      decimal.Decimal `json:"average_rating"`
		Distribution map[string]int  `json:"rating_distribution"`
		Verified     int             `json:"verified_reviews"`
	}{stats.Total, stats.Average, dist, stats.Verified})
}

type reviewReq struct {
	Rating httpx.FlexInt `json:"rating"`
	Text   string        `json:"review_text"`
}

func (h *Handler) addReview(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddReview")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	who, ok := identity.FromContext(ctx)
	if !ok || !who.Authenticated() {
		httpx.Error(w, r, h.log, fmt.Errorf("%w: authentication required", apperr.ErrUnauthenticated))
		return
	}
	var req reviewReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if !req.Rating.Set {
		httpx.Error(w, r, h.log, apperr.Validation("rating is required"))
		return
	}

	rv, err := h.service.AddReview(ctx, application.NewReview{
		ProductID: id,
		UserID:    who.UserID,
		Rating:    req.Rating.Value,
		Text:      req.Text,
	})
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toReview(rv))
}
