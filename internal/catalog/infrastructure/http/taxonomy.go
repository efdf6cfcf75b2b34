package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmehra2102/storefront/internal/catalog/application"
	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type categoryResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	ParentID     *int64    `json:"parent"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func toCategory(c domain.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Slug:         c.Slug,
		Description:  c.Description,
		ParentID:     c.ParentID,
		ProductCount: c.ProductCount,
		CreatedAt:    c.CreatedAt,
	}
}

type brandResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func toBrand(b domain.Brand) brandResponse {
	return brandResponse{
		ID:           b.ID,
		Name:         b.Name,
		Slug:         b.Slug,
		Description:  b.Description,
		ProductCount: b.ProductCount,
		CreatedAt:    b.CreatedAt,
	}
}

// listCategories takes parent=0 or main_only for top-level categories and
// parent=<id> for one parent's children.
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f domain.CategoryFilter
	if p := q.Get("parent"); p == "0" {
		f.MainOnly = true
	} else {
		id, err := optID(p)
		if err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		f.ParentID = id
	}
	if q.Get("main_only") != "" {
		f.MainOnly = true
	}

	cats, err := h.service.ListCategories(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategory(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	var (
		c   domain.Category
		err error
	)
	if id, ok := numericRef(r); ok {
		c, err = h.service.GetCategory(r.Context(), id)
	} else {
		c, err = h.service.GetCategoryBySlug(r.Context(), chi.URLParam(r, "id"))
	}
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCategory(c))
}

type categoryReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	c, err := h.service.CreateCategory(r.Context(), application.NewCategory(req))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCategory(c))
}

func (h *Handler) listBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.ListBrands(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	out := make([]brandResponse, 0, len(brands))
	for _, b := range brands {
		out = append(out, toBrand(b))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getBrand(w http.ResponseWriter, r *http.Request) {
	var (
		b   domain.Brand
		err error
	)
	if id, ok := numericRef(r); ok {
		b, err = h.service.GetBrand(r.Context(), id)
	} else {
		b, err = h.service.GetBrandBySlug(r.Context(), chi.URLParam(r, "id"))
	}
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBrand(b))
}

type brandReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) createBrand(w http.ResponseWriter, r *http.Request) {
	var req brandReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	b, err := h.service.CreateBrand(r.Context(), application.NewBrand(req))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toBrand(b))
}
