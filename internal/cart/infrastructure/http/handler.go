package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/cart/application"
	"github.com/dmehra2102/storefront/internal/cart/domain"
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
		tracer:  otel.Tracer("cart-http"),
	}
}

// Routes expects identity.Resolver.Middleware to run first.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.get)
	r.Post("/add", h.add)
	r.Patch("/item/{id}", h.update)
	r.Delete("/item/{id}", h.remove)
	r.Post("/clear", h.clear)
	return r
}

type itemResponse struct {
	ID           int64           `json:"id"`
	Product      int64           `json:"product"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	ID         string          `json:"id"`
	User       *string         `json:"user"`
	SessionKey *string         `json:"session_key"`
	Items      []itemResponse  `json:"items"`
	TotalItems int             `json:"total_items"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toItem(it domain.Item) itemResponse {
	return itemResponse{
		ID:           it.ID,
		Product:      it.ProductID,
		ProductName:  it.ProductName,
		ProductPrice: it.UnitPrice,
		Quantity:     it.Quantity,
		Subtotal:     it.Subtotal(),
	}
}

func toCart(c domain.Cart) cartResponse {
	out := cartResponse{
		ID:         c.ID,
		Items:      make([]itemResponse, 0, len(c.Items)),
		TotalItems: c.TotalQuantity(),
		Total:      c.Total(),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	if c.UserID != "" {
		out.User = &c.UserID
	}
	if c.SessionKey != "" {
		out.SessionKey = &c.SessionKey
	}
	for _, it := range c.Items {
		out.Items = append(out.Items, toItem(it))
	}
	return out
}

func owner(r *http.Request) (identity.Identity, error) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		return identity.Identity{}, errors.New("identity middleware not installed")
	}
	return id, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCart")
	defer span.End()

	who, err := owner(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	c, err := h.service.GetOrCreate(ctx, who)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCart(c))
}

type addReq struct {
	Product  httpx.FlexInt `json:"product"`
	Quantity httpx.FlexInt `json:"quantity"`
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddToCart")
	defer span.End()

	var req addReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if !req.Product.Set {
		httpx.Error(w, r, h.log, apperr.Validation("product is required"))
		return
	}
	quantity := 1
	if req.Quantity.Set {
		quantity = req.Quantity.Value
	}
	span.SetAttributes(attribute.Int("product.id", req.Product.Value), attribute.Int("quantity", quantity))

	who, err := owner(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	c, err := h.service.GetOrCreate(ctx, who)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	item, err := h.service.AddItem(ctx, c.ID, int64(req.Product.Value), quantity)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Item added to cart",
		"item":    toItem(item),
	})
}

type updateReq struct {
	Quantity httpx.FlexInt `json:"quantity"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateCartItem")
	defer span.End()

	itemID, err := pathID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req updateReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if !req.Quantity.Set {
		httpx.Error(w, r, h.log, apperr.Validation("quantity is required"))
		return
	}
	c, err := h.existing(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}

	item, removed, err := h.service.UpdateItemQuantity(ctx, c.ID, itemID, req.Quantity.Value)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if removed {
		httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Item removed from cart"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "item": toItem(item)})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	c, err := h.existing(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if err := h.service.RemoveItem(r.Context(), c.ID, itemID); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Item removed from cart"})
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	c, err := h.existing(r)
	switch {
	case errors.Is(err, domain.ErrCartNotFound):
		// nothing to clear
	case err != nil:
		httpx.Error(w, r, h.log, err)
		return
	default:
		if err := h.service.Clear(r.Context(), c.ID); err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Cart cleared"})
}

// existing returns the caller's cart without creating one.
func (h *Handler) existing(r *http.Request) (domain.Cart, error) {
	who, err := owner(r)
	if err != nil {
		return domain.Cart{}, err
	}
	return h.service.Find(r.Context(), who)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid item id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}
