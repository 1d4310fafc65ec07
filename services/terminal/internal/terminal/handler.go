package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/pos/services/terminal/internal/audit"
	"github.com/appetiteclub/pos/services/terminal/internal/checkout"
	"github.com/appetiteclub/pos/services/terminal/internal/restoapi"
)

const MaxBodyBytes = 1 << 20

// AuditLister reads the audit trail of one session.
type AuditLister interface {
	ListBySession(ctx context.Context, sessionID string) ([]audit.Entry, error)
}

type Handler struct {
	catalog   *checkout.Catalog
	sessions  *SessionStore
	submitter *checkout.Submitter
	history   *checkout.History
	receipts  *checkout.ReceiptFormatter
	audits    AuditLister
	metrics   http.Handler
	observe   func(http.Handler) http.Handler
	logger    aqm.Logger
	config    *aqm.Config
	tlm       *telemetry.HTTP
}

type HandlerDeps struct {
	Catalog   *checkout.Catalog
	Sessions  *SessionStore
	Submitter *checkout.Submitter
	History   *checkout.History
	Receipts  *checkout.ReceiptFormatter
	Audits    AuditLister
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Observe wraps every /terminal route, e.g. with request metrics.
	Observe func(http.Handler) http.Handler
}

func NewHandler(deps HandlerDeps, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if deps.Sessions == nil {
		deps.Sessions = NewSessionStore(0, logger)
	}
	if deps.Receipts == nil {
		deps.Receipts = checkout.NewReceiptFormatter("$", nil)
	}

	return &Handler{
		catalog:   deps.Catalog,
		sessions:  deps.Sessions,
		submitter: deps.Submitter,
		history:   deps.History,
		receipts:  deps.Receipts,
		audits:    deps.Audits,
		metrics:   deps.Metrics,
		observe:   deps.Observe,
		logger:    logger,
		config:    config,
		tlm:       telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/terminal", func(r chi.Router) {
		if h.observe != nil {
			r.Use(h.observe)
		}
		r.Use(withBearer)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/items", h.ListItems)
			r.Get("/categories", h.ListCategories)
			r.Post("/refresh", h.RefreshCatalog)
		})

		r.Post("/sessions", h.OpenSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)

			r.Post("/cart", h.AddToCart)
			r.Post("/cart/drain", h.DrainCart)
			r.Put("/cart/{index}", h.SetCartQuantity)
			r.Delete("/cart/{index}", h.RemoveCartLine)

			r.Post("/lines", h.AddLine)
			r.Put("/lines/{index}", h.UpdateLine)
			r.Delete("/lines/{index}", h.RemoveLine)

			r.Post("/payments", h.AddPayment)
			r.Put("/payments/{index}", h.UpdatePayment)
			r.Delete("/payments/{index}", h.RemovePayment)

			r.Post("/checkout", h.Checkout)
			r.Post("/new-order", h.NewOrder)
			r.Get("/receipt", h.GetReceipt)
			r.Get("/receipt/print", h.PrintReceipt)
			r.Get("/audit", h.ListAudit)
		})

		r.Get("/history", h.GetHistory)
	})

	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

// withBearer hands the caller's credential to the resto API client.
func withBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := restoapi.BearerFrom(r.Header.Get("Authorization")); token != "" {
			r = r.WithContext(restoapi.WithBearer(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// Catalog

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListItems")
	defer finish()

	if h.catalog == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, checkout.ErrCatalogUnavailable.Error())
		return
	}

	var items []checkout.MenuItem
	query := r.URL.Query()
	switch {
	case query.Get("q") != "":
		items = h.catalog.Search(query.Get("q"))
	case query.Get("category") != "":
		items = h.catalog.ItemsInCategory(query.Get("category"))
	default:
		items = h.catalog.AvailableItems()
	}
	if items == nil {
		items = []checkout.MenuItem{}
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"items":     items,
		"loaded_at": h.catalog.LoadedAt(),
	}, nil)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListCategories")
	defer finish()

	if h.catalog == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, checkout.ErrCatalogUnavailable.Error())
		return
	}

	categories := h.catalog.Categories()
	if categories == nil {
		categories = []string{}
	}
	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	}, nil)
}

func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RefreshCatalog")
	defer finish()
	log := h.log(r)

	if h.catalog == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, checkout.ErrCatalogUnavailable.Error())
		return
	}
	if err := h.catalog.Load(r.Context()); err != nil {
		h.respondErr(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"items":     len(h.catalog.Items()),
		"loaded_at": h.catalog.LoadedAt(),
	}, nil)
}

// Sessions

type openSessionRequest struct {
	Cashier string `json:"cashier"`
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.OpenSession")
	defer finish()
	log := h.log(r)

	var req openSessionRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	var resolver checkout.ItemResolver
	if h.catalog != nil {
		resolver = h.catalog
	}
	session := checkout.NewSession(strings.TrimSpace(req.Cashier), resolver, h.submitter)
	if err := h.sessions.Save(session); err != nil {
		log.Errorf("cannot save session: %v", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not open session")
		return
	}

	log.Info("terminal session opened", "session_id", session.ID.String(), "cashier", session.Cashier)
	aqm.Respond(w, http.StatusCreated, session.View(), nil)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetSession")
	defer finish()

	session, ok := h.session(w, r)
	if !ok {
		return
	}
	aqm.Respond(w, http.StatusOK, session.View(), nil)
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CloseSession")
	defer finish()
	log := h.log(r)

	id := chi.URLParam(r, "id")
	if !h.sessions.Delete(id) {
		aqm.RespondError(w, http.StatusNotFound, checkout.ErrSessionNotFound.Error())
		return
	}

	log.Info("terminal session closed", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Cart

type addToCartRequest struct {
	Item string `json:"item"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddToCart")
	defer finish()
	log := h.log(r)

	var req addToCartRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if h.catalog == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, checkout.ErrCatalogUnavailable.Error())
		return
	}

	item, err := h.catalog.Lookup(req.Item)
	if err != nil {
		h.respondErr(w, log, err)
		return
	}

	h.edit(w, r, func(cart *checkout.Cart, _ *checkout.Builder) error {
		return cart.Add(item)
	})
}

func (h *Handler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SetCartQuantity")
	defer finish()
	log := h.log(r)

	index, ok := h.index(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	h.edit(w, r, func(cart *checkout.Cart, _ *checkout.Builder) error {
		return cart.SetQuantity(index, req.Quantity)
	})
}

func (h *Handler) RemoveCartLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveCartLine")
	defer finish()

	index, ok := h.index(w, r)
	if !ok {
		return
	}

	h.edit(w, r, func(cart *checkout.Cart, _ *checkout.Builder) error {
		return cart.Remove(index)
	})
}

// DrainCart moves the cart into the order builder.
func (h *Handler) DrainCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DrainCart")
	defer finish()

	h.edit(w, r, func(cart *checkout.Cart, builder *checkout.Builder) error {
		return cart.DrainInto(builder)
	})
}

// Order lines

type updateLineRequest struct {
	Category *string `json:"category"`
	Item     *string `json:"item"`
	Quantity *int    `json:"quantity"`
}

func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddLine")
	defer finish()

	h.edit(w, r, func(_ *checkout.Cart, builder *checkout.Builder) error {
		builder.AddBlankLine()
		return nil
	})
}

// UpdateLine applies category, then item, then quantity, matching the order
// in which a cashier fills a row.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateLine")
	defer finish()
	log := h.log(r)

	index, ok := h.index(w, r)
	if !ok {
		return
	}
	var req updateLineRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	h.edit(w, r, func(_ *checkout.Cart, builder *checkout.Builder) error {
		if req.Category != nil {
			if err := builder.SetLineCategory(index, *req.Category); err != nil {
				return err
			}
		}
		if req.Item != nil {
			if err := builder.SetLineItem(index, *req.Item); err != nil {
				return err
			}
		}
		if req.Quantity != nil {
			if err := builder.SetLineQuantity(index, *req.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemoveLine")
	defer finish()

	index, ok := h.index(w, r)
	if !ok {
		return
	}

	h.edit(w, r, func(_ *checkout.Cart, builder *checkout.Builder) error {
		return builder.RemoveLine(index)
	})
}

// Additional payments

type updatePaymentRequest struct {
	Description *string `json:"description"`
	Amount      *string `json:"amount"`
}

func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AddPayment")
	defer finish()

	h.edit(w, r, func(_ *checkout.Cart, builder *checkout.Builder) error {
		builder.AddPayment()
		return nil
	})
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdatePayment")
	defer finish()
	log := h.log(r)

	index, ok := h.index(w, r)
	if !ok {
		return
	}
	var req updatePaymentRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	h.edit(w, r, func(_ *checkout.Cart, builder *checkout.Builder) error {
		if req.Description != nil {
			if err := builder.SetPaymentField(index, checkout.PaymentDescription, *req.Description); err != nil {
				return err
			}
		}
		if req.Amount != nil {
			if err := builder.SetPaymentField(index, checkout.PaymentAmount, *req.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *Handler) RemovePayment(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RemovePayment")
	defer finish()

	index, ok := h.index(w, r)
	if !ok {
		return
	}

	h.edit(w, r, func(_ *checkout.Cart, builder *checkout.Builder) error {
		return builder.RemovePayment(index)
	})
}

// Checkout and receipt

type checkoutRequest struct {
	OrderType     string `json:"order_type"`
	PaymentMethod string `json:"payment_method"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.Checkout")
	defer finish()
	log := h.log(r)

	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	orderType, err := checkout.ParseOrderType(req.OrderType)
	if err != nil {
		h.respondErr(w, log, err)
		return
	}

	order, err := session.PlaceOrder(r.Context(), orderType, req.PaymentMethod)
	if err != nil {
		log.Info("checkout failed",
			"session_id", session.ID.String(),
			"kind", checkout.ErrorKind(err),
			"error", err,
		)
		h.respondErr(w, log, err)
		return
	}

	aqm.Respond(w, http.StatusCreated, map[string]interface{}{
		"order":   order,
		"receipt": h.receipts.Format(order),
		"session": session.View(),
	}, nil)
}

func (h *Handler) NewOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.NewOrder")
	defer finish()
	log := h.log(r)

	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.NewOrder(); err != nil {
		h.respondErr(w, log, err)
		return
	}
	aqm.Respond(w, http.StatusOK, session.View(), nil)
}

func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetReceipt")
	defer finish()
	log := h.log(r)

	session, ok := h.session(w, r)
	if !ok {
		return
	}
	order, err := session.LastOrder()
	if err != nil {
		h.respondErr(w, log, err)
		return
	}
	aqm.Respond(w, http.StatusOK, h.receipts.Format(order), nil)
}

// PrintReceipt writes the printable document itself, not a JSON envelope.
func (h *Handler) PrintReceipt(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PrintReceipt")
	defer finish()
	log := h.log(r)

	session, ok := h.session(w, r)
	if !ok {
		return
	}
	order, err := session.LastOrder()
	if err != nil {
		h.respondErr(w, log, err)
		return
	}

	format := checkout.PrintFormat(r.URL.Query().Get("format"))
	printable, err := h.receipts.ToPrintable(h.receipts.Format(order), format)
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", printable.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", printable.Title))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(printable.Body); err != nil {
		log.Debug("cannot write receipt", "error", err)
	}
}

func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListAudit")
	defer finish()
	log := h.log(r)

	if h.audits == nil {
		aqm.RespondError(w, http.StatusNotFound, "Audit trail not enabled")
		return
	}

	id := chi.URLParam(r, "id")
	entries, err := h.audits.ListBySession(r.Context(), id)
	if err != nil {
		log.Errorf("cannot list audit entries: %v", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not list audit entries")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
	}, nil)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetHistory")
	defer finish()
	log := h.log(r)

	if h.history == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, "Order history not configured")
		return
	}

	if day := r.URL.Query().Get("day"); day != "" {
		summary, err := h.history.OnDay(r.Context(), day)
		if err != nil {
			h.respondErr(w, log, err)
			return
		}
		aqm.Respond(w, http.StatusOK, summary, nil)
		return
	}

	days, err := h.history.Days(r.Context())
	if err != nil {
		h.respondErr(w, log, err)
		return
	}
	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"days": days,
	}, nil)
}

// Helpers

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	session, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		aqm.RespondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return session, true
}

// edit runs fn against the session and answers with the updated view.
func (h *Handler) edit(w http.ResponseWriter, r *http.Request, fn func(*checkout.Cart, *checkout.Builder) error) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Edit(fn); err != nil {
		h.respondErr(w, h.log(r), err)
		return
	}
	aqm.Respond(w, http.StatusOK, session.View(), nil)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid index")
		return 0, false
	}
	return index, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log aqm.Logger, dst interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		log.Debug("cannot read request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dst); err != nil {
		log.Debug("cannot decode request body", "error", err)
		aqm.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondErr maps checkout and remote errors onto HTTP statuses.
func (h *Handler) respondErr(w http.ResponseWriter, log aqm.Logger, err error) {
	var validation checkout.ValidationErrors
	if errors.As(err, &validation) {
		aqm.Respond(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"errors": validation,
		}, nil)
		return
	}

	switch {
	case errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, checkout.ErrIndexOutOfRange),
		errors.Is(err, checkout.ErrItemNotFound),
		errors.Is(err, checkout.ErrNoReceipt):
		aqm.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrSubmissionInFlight),
		errors.Is(err, checkout.ErrOrderPlaced),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrItemUnavailable):
		aqm.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrNegativeAmount),
		errors.Is(err, checkout.ErrInvalidAmount),
		errors.Is(err, checkout.ErrUnknownField),
		errors.Is(err, checkout.ErrInvalidOrderType),
		errors.Is(err, checkout.ErrInvalidDay):
		aqm.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrAuth):
		aqm.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, checkout.ErrNetwork),
		errors.Is(err, checkout.ErrCatalogUnavailable):
		aqm.RespondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, checkout.ErrOutcomeUnknown):
		aqm.RespondError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, checkout.ErrServer):
		aqm.RespondError(w, http.StatusBadGateway, err.Error())
	default:
		log.Errorf("unexpected checkout error: %v", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Internal error")
	}
}
