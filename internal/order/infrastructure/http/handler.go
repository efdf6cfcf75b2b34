package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/httpx"
	"github.com/dmehra2102/storefront/pkg/identity"
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
		tracer:  otel.Tracer("order-http"),
	}
}

// Routes expects an authenticated identity on every request. idempotent wraps
// order creation.
func (h *Handler) Routes(idempotent func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.With(idempotent).Post("/", h.checkout)
	r.Get("/my", h.listMine)
	r.Get("/{id}", h.get)
	r.Patch("/{id}/status", h.changeStatus)
	return r
}

type itemResponse struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type orderResponse struct {
	ID              string          `json:"id"`
	User            string          `json:"user"`
	Status          string          `json:"status"`
	ShippingAddress string          `json:"shipping_address"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Items           []itemResponse  `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toResponse(o domain.Order) orderResponse {
	out := orderResponse{
		ID:              o.ID,
		User:            o.UserID,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		TotalPrice:      o.TotalPrice,
		Items:           make([]itemResponse, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, itemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.UnitPrice,
		})
	}
	return out
}

func userID(r *http.Request) (string, error) {
	id, ok := identity.FromContext(r.Context())
	if !ok || !id.Authenticated() {
		return "", fmt.Errorf("%w: authentication required", apperr.ErrUnauthenticated)
	}
	return id.UserID, nil
}

type checkoutReq struct {
	ShippingAddress string `json:"shipping_address"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	uid, err := userID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req checkoutReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}

	o, err := h.service.Checkout(ctx, uid, domain.CheckoutAttrs{ShippingAddress: req.ShippingAddress})
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	httpx.JSON(w, http.StatusCreated, toResponse(o))
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	orders, err := h.service.ListMine(r.Context(), uid)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toResponse(o))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	o, err := h.service.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(o))
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ChangeOrderStatus")
	defer span.End()

	uid, err := userID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req statusReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	o, err := h.service.ChangeStatus(ctx, uid, chi.URLParam(r, "id"), domain.OrderStatus(req.Status))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(o))
}
