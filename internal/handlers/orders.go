package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/washline/api/internal/domain"
	"github.com/washline/api/internal/platform/httpx"
	"github.com/washline/api/internal/platform/pagination"
	"github.com/washline/api/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
	maxOrderBodySize     = 32 * 1024
)

var validOrderStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusInProgress: {},
	domain.OrderStatusReady:      {},
	domain.OrderStatusCompleted:  {},
	domain.OrderStatusCanceled:   {},
}

var validPaymentStatuses = map[domain.PaymentStatus]struct{}{
	domain.PaymentStatusUnpaid:    {},
	domain.PaymentStatusPartial:   {},
	domain.PaymentStatusPaid:      {},
	domain.PaymentStatusRefundDue: {},
}

// OrderHandlers exposes booking creation and order lifecycle endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// BookingRoutes registers the /bookings endpoints.
func (h *OrderHandlers) BookingRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createBooking)
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderNumber}", h.getOrder)
	r.Put("/{orderNumber}", h.editOrder)
	r.Post("/{orderNumber}:transition", h.transitionOrder)
	r.Post("/{orderNumber}:cancel", h.cancelOrder)
	r.Post("/{orderNumber}/payments", h.recordPayment)
}

type discountRequest struct {
	Type  string      `json:"type"`
	Value json.Number `json:"value"`
}

type advanceRequest struct {
	Amount string `json:"amount"`
	Method string `json:"method"`
}

type createBookingRequest struct {
	CustomerName string             `json:"customer_name"`
	Phone        string             `json:"phone"`
	ServiceType  string             `json:"service_type"`
	Urgent       bool               `json:"urgent"`
	PickupDate   string             `json:"pickup_date"`
	DeliveryDate string             `json:"delivery_date"`
	Instructions string             `json:"instructions"`
	Items        map[string]float64 `json:"items"`
	Discount     *discountRequest   `json:"discount"`
	Advance      *advanceRequest    `json:"advance"`
}

type editOrderRequest struct {
	ExpectedVersion *int64             `json:"expected_version"`
	CustomerName    string             `json:"customer_name"`
	Phone           string             `json:"phone"`
	ServiceType     string             `json:"service_type"`
	Urgent          bool               `json:"urgent"`
	PickupDate      string             `json:"pickup_date"`
	DeliveryDate    string             `json:"delivery_date"`
	Instructions    string             `json:"instructions"`
	Items           map[string]float64 `json:"items"`
	Discount        *discountRequest   `json:"discount"`
}

type transitionOrderRequest struct {
	TargetStatus   string `json:"target_status"`
	Reason         string `json:"reason"`
	ExpectedStatus string `json:"expected_status"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type recordPaymentRequest struct {
	Amount string `json:"amount"`
	Method string `json:"method"`
}

func (h *OrderHandlers) createBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createBookingRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	discount, err := buildDiscount(req.Discount)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "discount.value "+err.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.CreateBookingCommand{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		ServiceType:  req.ServiceType,
		Urgent:       req.Urgent,
		PickupDate:   req.PickupDate,
		DeliveryDate: req.DeliveryDate,
		Instructions: req.Instructions,
		Quantities:   req.Items,
		Discount:     discount,
	}

	if req.Advance != nil {
		amount, err := parseRupees(req.Advance.Amount)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "advance.amount "+err.Error(), http.StatusBadRequest))
			return
		}
		cmd.InitialPaid = amount
		cmd.InitialMethod = domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.Advance.Method)))
	}

	order, err := h.orders.CreateBooking(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()

	var statusFilters []domain.OrderStatus
	for _, raw := range parseFilterValues(query["status"]) {
		status := domain.OrderStatus(raw)
		if _, ok := validOrderStatuses[status]; !ok {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status filter must be a valid order status", http.StatusBadRequest))
			return
		}
		statusFilters = append(statusFilters, status)
	}

	var paymentFilters []domain.PaymentStatus
	for _, raw := range parseFilterValues(query["payment_status"]) {
		status := domain.PaymentStatus(raw)
		if _, ok := validPaymentStatuses[status]; !ok {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment_status filter must be a valid payment status", http.StatusBadRequest))
			return
		}
		paymentFilters = append(paymentFilters, status)
	}

	var urgent *bool
	if raw := strings.TrimSpace(query.Get("urgent")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "urgent must be a boolean", http.StatusBadRequest))
			return
		}
		urgent = &value
	}

	var createdRange domain.RangeQuery[time.Time]
	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		createdRange.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		createdRange.To = &ts
	}

	pageParams, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultOrderPageSize,
		MaxPageSize:     maxOrderPageSize,
	})
	if err != nil {
		switch {
		case errors.Is(err, pagination.ErrInvalidPageSize):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be a positive integer", http.StatusBadRequest))
		case errors.Is(err, pagination.ErrInvalidPageToken):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_token is not valid", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}

	filter := services.OrderListFilter{
		Status:        statusFilters,
		PaymentStatus: paymentFilters,
		Urgent:        urgent,
		CreatedRange:  createdRange,
		Pagination: domain.Pagination{
			PageSize:  pageParams.PageSize,
			PageToken: pageParams.PageToken,
		},
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}

	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderNumber, ok := orderNumberParam(ctx, w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, orderNumber)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) editOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderNumber, ok := orderNumberParam(ctx, w, r)
	if !ok {
		return
	}

	var req editOrderRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}
	if req.ExpectedVersion == nil || *req.ExpectedVersion <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "expected_version is required", http.StatusBadRequest))
		return
	}

	discount, err := buildDiscount(req.Discount)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "discount.value "+err.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.EditOrderCommand{
		OrderNumber:     orderNumber,
		ExpectedVersion: *req.ExpectedVersion,
		CustomerName:    req.CustomerName,
		Phone:           req.Phone,
		ServiceType:     req.ServiceType,
		Urgent:          req.Urgent,
		PickupDate:      req.PickupDate,
		DeliveryDate:    req.DeliveryDate,
		Instructions:    req.Instructions,
		Quantities:      req.Items,
		Discount:        discount,
	}

	order, err := h.orders.ApplyEdit(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderNumber, ok := orderNumberParam(ctx, w, r)
	if !ok {
		return
	}

	var req transitionOrderRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	cmd := services.OrderStatusTransitionCommand{
		OrderNumber:  orderNumber,
		TargetStatus: domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.TargetStatus))),
		Reason:       strings.TrimSpace(req.Reason),
	}
	if raw := strings.TrimSpace(req.ExpectedStatus); raw != "" {
		expected := domain.OrderStatus(strings.ToLower(raw))
		if _, ok := validOrderStatuses[expected]; !ok {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "expected_status must be a valid order status", http.StatusBadRequest))
			return
		}
		cmd.ExpectedStatus = &expected
	}

	order, err := h.orders.TransitionStatus(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderNumber, ok := orderNumberParam(ctx, w, r)
	if !ok {
		return
	}

	var req cancelOrderRequest
	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeOrderBodyError(ctx, w, err)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderNumber: orderNumber,
		Reason:      strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) recordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderNumber, ok := orderNumberParam(ctx, w, r)
	if !ok {
		return
	}

	var req recordPaymentRequest
	if !decodeOrderBody(ctx, w, r, &req) {
		return
	}

	amount, err := parseRupees(req.Amount)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_invalid_amount", "amount "+err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.RecordPayment(ctx, services.RecordPaymentCommand{
		OrderNumber: orderNumber,
		Amount:      amount,
		Method:      domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.Method))),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func orderNumberParam(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
	if orderNumber == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order number is required", http.StatusBadRequest))
		return "", false
	}
	return orderNumber, true
}

func decodeOrderBody(ctx context.Context, w http.ResponseWriter, r *http.Request, target any) bool {
	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeOrderBodyError(ctx, w, err)
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

func writeOrderBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

// buildDiscount converts the wire discount. Fixed discount values arrive in
// rupees, like every monetary field, and are stored in paise; percent values
// are plain numbers.
func buildDiscount(req *discountRequest) (domain.Discount, error) {
	if req == nil {
		return domain.Discount{}, nil
	}
	discount := domain.Discount{Type: domain.DiscountType(strings.ToLower(strings.TrimSpace(req.Type)))}
	raw := strings.TrimSpace(req.Value.String())
	if raw == "" {
		return discount, nil
	}
	if discount.Type == domain.DiscountTypeFixed {
		paise, err := parseRupees(raw)
		if err != nil {
			return domain.Discount{}, err
		}
		discount.Value = float64(paise)
		return discount, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return domain.Discount{}, errors.New("must be a number")
	}
	discount.Value = value
	return discount, nil
}

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type orderSummaryPayload struct {
	OrderNumber   string `json:"order_number"`
	CustomerName  string `json:"customer_name"`
	ServiceType   string `json:"service_type"`
	Urgent        bool   `json:"urgent"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	PaymentMethod string `json:"payment_method"`
	GrandTotal    string `json:"grand_total"`
	BalanceDue    string `json:"balance_due"`
	CreatedAt     string `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	OrderNumber   string                      `json:"order_number"`
	CustomerName  string                      `json:"customer_name"`
	Phone         string                      `json:"phone"`
	ServiceType   string                      `json:"service_type"`
	Urgent        bool                        `json:"urgent"`
	PickupDate    string                      `json:"pickup_date,omitempty"`
	DeliveryDate  string                      `json:"delivery_date,omitempty"`
	Instructions  string                      `json:"instructions,omitempty"`
	Items         map[string]orderItemPayload `json:"items"`
	Discount      discountPayload             `json:"discount"`
	Tax           taxPolicyPayload            `json:"tax"`
	Totals        orderTotalsPayload          `json:"totals"`
	Payment       paymentAllocationPayload    `json:"payment"`
	PaymentStatus string                      `json:"payment_status"`
	PaymentMethod string                      `json:"payment_method"`
	BalanceDue    string                      `json:"balance_due"`
	RefundDue     string                      `json:"refund_due,omitempty"`
	Status        string                      `json:"status"`
	CancelReason  *string                     `json:"cancel_reason,omitempty"`
	CanceledAt    string                      `json:"canceled_at,omitempty"`
	Version       int64                       `json:"version"`
	CreatedAt     string                      `json:"created_at"`
	UpdatedAt     string                      `json:"updated_at,omitempty"`
}

type orderItemPayload struct {
	Quantity  float64 `json:"quantity"`
	UnitPrice string  `json:"unit_price"`
	LineTotal string  `json:"line_total"`
}

type discountPayload struct {
	Type    string  `json:"type,omitempty"`
	Percent float64 `json:"percent,omitempty"`
	Amount  string  `json:"amount,omitempty"`
}

type taxPolicyPayload struct {
	Enabled     bool    `json:"enabled"`
	SGSTPercent float64 `json:"sgst_percent"`
	CGSTPercent float64 `json:"cgst_percent"`
}

type orderTotalsPayload struct {
	TotalItems  float64 `json:"total_items"`
	Subtotal    string  `json:"subtotal"`
	Discount    string  `json:"discount"`
	TaxableBase string  `json:"taxable_base"`
	SGST        string  `json:"sgst"`
	CGST        string  `json:"cgst"`
	GrandTotal  string  `json:"grand_total"`
}

type paymentAllocationPayload struct {
	CashPaid   string                `json:"cash_paid"`
	OnlinePaid string                `json:"online_paid"`
	TotalPaid  string                `json:"total_paid"`
	Entries    []paymentEntryPayload `json:"entries"`
}

type paymentEntryPayload struct {
	ID         string `json:"id"`
	Method     string `json:"method"`
	Amount     string `json:"amount"`
	RecordedAt string `json:"recorded_at"`
}

func buildDiscountPayload(discount domain.Discount) discountPayload {
	payload := discountPayload{Type: string(discount.Type)}
	switch discount.Type {
	case domain.DiscountTypeFixed:
		payload.Amount = formatPaise(int64(discount.Value))
	case domain.DiscountTypePercent:
		payload.Percent = discount.Value
	}
	return payload
}

func buildOrderSummary(order services.Order) orderSummaryPayload {
	return orderSummaryPayload{
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		ServiceType:   order.ServiceType,
		Urgent:        order.Urgent,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		PaymentMethod: string(order.Payment.MethodLabel()),
		GrandTotal:    formatPaise(order.Totals.GrandTotal),
		BalanceDue:    formatPaise(order.BalanceDue()),
		CreatedAt:     formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order services.Order) orderPayload {
	items := make(map[string]orderItemPayload, len(order.Items))
	for itemType, item := range order.Items {
		items[itemType] = orderItemPayload{
			Quantity:  item.Quantity,
			UnitPrice: formatPaise(item.UnitPrice),
			LineTotal: formatPaise(item.LineTotal),
		}
	}

	entries := make([]paymentEntryPayload, 0, len(order.Payment.Entries))
	for _, entry := range order.Payment.Entries {
		entries = append(entries, paymentEntryPayload{
			ID:         entry.ID,
			Method:     string(entry.Method),
			Amount:     formatPaise(entry.Amount),
			RecordedAt: formatTime(entry.RecordedAt),
		})
	}

	payload := orderPayload{
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		Phone:        order.Phone,
		ServiceType:  order.ServiceType,
		Urgent:       order.Urgent,
		PickupDate:   order.PickupDate,
		DeliveryDate: order.DeliveryDate,
		Instructions: order.Instructions,
		Items:        items,
		Discount:     buildDiscountPayload(order.Discount),
		Tax: taxPolicyPayload{
			Enabled:     order.Tax.Enabled,
			SGSTPercent: order.Tax.SGSTPercent,
			CGSTPercent: order.Tax.CGSTPercent,
		},
		Totals: orderTotalsPayload{
			TotalItems:  order.Totals.TotalItems,
			Subtotal:    formatPaise(order.Totals.Subtotal),
			Discount:    formatPaise(order.Totals.Discount),
			TaxableBase: formatPaise(order.Totals.TaxableBase),
			SGST:        formatPaise(order.Totals.SGST),
			CGST:        formatPaise(order.Totals.CGST),
			GrandTotal:  formatPaise(order.Totals.GrandTotal),
		},
		Payment: paymentAllocationPayload{
			CashPaid:   formatPaise(order.Payment.CashPaid),
			OnlinePaid: formatPaise(order.Payment.OnlinePaid),
			TotalPaid:  formatPaise(order.Payment.TotalPaid()),
			Entries:    entries,
		},
		PaymentStatus: string(order.PaymentStatus),
		PaymentMethod: string(order.Payment.MethodLabel()),
		BalanceDue:    formatPaise(order.BalanceDue()),
		Status:        string(order.Status),
		CancelReason:  order.CancelReason,
		Version:       order.Version,
		CreatedAt:     formatTime(order.CreatedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
	}
	if refund := order.RefundDue(); refund > 0 {
		payload.RefundDue = formatPaise(refund)
	}
	if order.CanceledAt != nil {
		payload.CanceledAt = formatTime(*order.CanceledAt)
	}
	return payload
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPaymentInvalidAmount):
		httpx.WriteError(ctx, w, httpx.NewError("payment_invalid_amount", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentUnknownMethod):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentExceedsBalance):
		httpx.WriteError(ctx, w, httpx.NewError("payment_exceeds_balance", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderLocked):
		httpx.WriteError(ctx, w, httpx.NewError("order_locked", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrBookingNumbersExhausted):
		httpx.WriteError(ctx, w, httpx.NewError("booking_numbers_exhausted", "no booking numbers remain", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}
