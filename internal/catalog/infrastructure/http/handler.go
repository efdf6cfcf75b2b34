package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/catalog/application"
	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("catalog-http"),
	}
}

// Routes mounts products and brands. Writes go through requireUser.
func (h *Handler) Routes(requireUser func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list(h.service.ListProducts))
	r.Get("/on-sale", h.list(h.service.ListOnSale))
	r.Get("/trending", h.list(h.service.ListTrending))
	r.Get("/low-stock", h.list(h.service.ListLowStock))
	r.Get("/out-of-stock", h.list(h.service.ListOutOfStock))
	r.Get("/{id}", h.get)
	r.Get("/{id}/reviews", h.listReviews)
	r.Get("/{id}/reviews/stats", h.reviewStats)

	r.Get("/brands", h.listBrands)
	r.Get("/brands/{id}", h.getBrand)
	r.Get("/brands/{id}/products", h.listBy(func(f *domain.ListFilter, id int64) { f.BrandID = id }))

	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/", h.create)
		r.Patch("/{id}/price", h.updatePrice)
		r.Get("/{id}/stock", h.stock)
		r.Patch("/{id}/stock", h.updateStock)
		r.Post("/{id}/reviews", h.addReview)
		r.Post("/brands", h.createBrand)
	})
	return r
}

// CategoryRoutes mounts the category tree. Writes go through requireUser.
func (h *Handler) CategoryRoutes(requireUser func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.listCategories)
	r.Get("/{id}", h.getCategory)
	r.Get("/{id}/products", h.listBy(func(f *domain.ListFilter, id int64) { f.CategoryID = id }))
	r.With(requireUser).Post("/", h.createCategory)
	return r
}

type productResponse struct {
	ID                 int64            `json:"id"`
	Name               string           `json:"name"`
	Slug               string           `json:"slug"`
	SKU                string           `json:"sku"`
	Description        string           `json:"description"`
	Price              decimal.Decimal  `json:"price"`
	OriginalPrice      *decimal.Decimal `json:"original_price"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
	OnSale             bool             `json:"on_sale"`
	CategoryID         *int64           `json:"category_id"`
	BrandID            *int64           `json:"brand_id"`
	Stock              int              `json:"stock"`
	StockStatus        string           `json:"stock_status"`
	PurchaseCount      int              `json:"purchase_count"`
	RatingAverage      decimal.Decimal  `json:"rating_average"`
	RatingCount        int              `json:"rating_count"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

func toResponse(p domain.Product) productResponse {
	out := productResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Slug:               p.Slug,
		SKU:                p.SKU,
		Description:        p.Description,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage(),
		OnSale:             p.OnSale(),
		CategoryID:         p.CategoryID,
		BrandID:            p.BrandID,
		Stock:              p.Stock,
		StockStatus:        string(p.StockStatus),
		PurchaseCount:      p.PurchaseCount,
		RatingAverage:      p.RatingAverage,
		RatingCount:        p.RatingCount,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.OriginalPrice.Valid {
		orig := p.OriginalPrice.Decimal
		out.OriginalPrice = &orig
	}
	return out
}

type lister func(ctx context.Context, f domain.ListFilter) (domain.Page, error)

func (h *Handler) list(fn lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := h.tracer.Start(r.Context(), "ListProducts")
		defer span.End()

		f, err := parseFilter(r)
		if err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		page, err := fn(ctx, f)
		if err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		results := make([]productResponse, 0, len(page.Items))
		for _, p := range page.Items {
			results = append(results, toResponse(p))
		}
		httpx.JSON(w, http.StatusOK, map[string]any{
			"count":     page.Total,
			"page":      page.Page,
			"page_size": page.PageSize,
			"results":   results,
		})
	}
}

// listBy lists products narrowed by the id path parameter.
func (h *Handler) listBy(narrow func(f *domain.ListFilter, id int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		h.list(func(ctx context.Context, f domain.ListFilter) (domain.Page, error) {
			narrow(&f, id)
			return h.service.ListProducts(ctx, f)
		})(w, r)
	}
}

func parseFilter(r *http.Request) (domain.ListFilter, error) {
	q := r.URL.Query()
	f := domain.ListFilter{
		StockStatus: domain.StockStatus(q.Get("stock_status")),
		SortBy:      domain.SortKey(q.Get("sort_by")),
	}
	var err error
	if f.Page, err = optInt(q.Get("page")); err != nil {
		return f, err
	}
	if f.PageSize, err = optInt(q.Get("page_size")); err != nil {
		return f, err
	}
	if f.LowStock, err = optInt(q.Get("threshold")); err != nil {
		return f, err
	}
	if f.CategoryID, err = optID(q.Get("category")); err != nil {
		return f, err
	}
	if f.BrandID, err = optID(q.Get("brand")); err != nil {
		return f, err
	}
	if f.MinPrice, err = optDecimal(q.Get("min_price")); err != nil {
		return f, err
	}
	if f.MaxPrice, err = optDecimal(q.Get("max_price")); err != nil {
		return f, err
	}
	return f, nil
}

// get resolves a product by numeric id or by slug.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	var (
		p   domain.Product
		err error
	)
	if id, ok := numericRef(r); ok {
		p, err = h.service.GetProduct(r.Context(), id)
	} else {
		p, err = h.service.GetProductBySlug(r.Context(), chi.URLParam(r, "id"))
	}
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) stock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stock": p.Stock, "stock_status": p.StockStatus})
}

type createReq struct {
	Name          string              `json:"name"`
	SKU           string              `json:"sku"`
	Description   string              `json:"description"`
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	Stock         int                 `json:"stock"`
	CategoryID    *int64              `json:"category_id"`
	BrandID       *int64              `json:"brand_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	var req createReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p, err := h.service.CreateProduct(ctx, application.NewProduct(req))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(p))
}

type priceReq struct {
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
}

func (h *Handler) updatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req priceReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p, err := h.service.UpdatePrice(r.Context(), id, req.Price, req.OriginalPrice)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

type stockReq struct {
	Stock httpx.FlexInt `json:"stock"`
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req stockReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if !req.Stock.Set {
		httpx.Error(w, r, h.log, apperr.Validation("stock is required"))
		return
	}
	p, err := h.service.UpdateStock(r.Context(), id, req.Stock.Value)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// numericRef reports whether the id path parameter is a number rather
// than a slug.
func numericRef(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func optInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation("not an integer: %q", v)
	}
	return n, nil
}

func optID(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, apperr.Validation("invalid id %q", v)
	}
	return n, nil
}

func optDecimal(v string) (decimal.NullDecimal, error) {
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, apperr.Validation("not a decimal: %q", v)
	}
	return decimal.NewNullDecimal(d), nil
}
