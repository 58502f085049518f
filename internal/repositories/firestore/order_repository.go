package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/washline/api/internal/domain"
	pfirestore "github.com/washline/api/internal/platform/firestore"
	"github.com/washline/api/internal/platform/pagination"
	"github.com/washline/api/internal/repositories"
)

type orderItemDocument struct {
	Quantity  float64 `firestore:"quantity"`
	UnitPrice int64   `firestore:"unitPrice"`
	LineTotal int64   `firestore:"lineTotal"`
}

type discountDocument struct {
	Type  string  `firestore:"type"`
	Value float64 `firestore:"value"`
}

type taxPolicyDocument struct {
	Enabled     bool    `firestore:"enabled"`
	SGSTPercent float64 `firestore:"sgstPercent"`
	CGSTPercent float64 `firestore:"cgstPercent"`
}

type orderTotalsDocument struct {
	TotalItems  float64 `firestore:"totalItems"`
	Subtotal    int64   `firestore:"subtotal"`
	Discount    int64   `firestore:"discount"`
	TaxableBase int64   `firestore:"taxableBase"`
	SGST        int64   `firestore:"sgst"`
	CGST        int64   `firestore:"cgst"`
	GrandTotal  int64   `firestore:"grandTotal"`
}

type paymentEntryDocument struct {
	ID         string    `firestore:"id"`
	Method     string    `firestore:"method"`
	Amount     int64     `firestore:"amount"`
	RecordedAt time.Time `firestore:"recordedAt"`
}

type paymentDocument struct {
	CashPaid   int64                  `firestore:"cashPaid"`
	OnlinePaid int64                  `firestore:"onlinePaid"`
	Entries    []paymentEntryDocument `firestore:"entries"`
}

type orderDocument struct {
	CustomerName  string                       `firestore:"customerName"`
	Phone         string                       `firestore:"phone"`
	ServiceType   string                       `firestore:"serviceType"`
	Urgent        bool                         `firestore:"urgent"`
	PickupDate    string                       `firestore:"pickupDate,omitempty"`
	DeliveryDate  string                       `firestore:"deliveryDate,omitempty"`
	Instructions  string                       `firestore:"instructions,omitempty"`
	Items         map[string]orderItemDocument `firestore:"items"`
	Discount      discountDocument             `firestore:"discount"`
	Tax           taxPolicyDocument            `firestore:"tax"`
	Totals        orderTotalsDocument          `firestore:"totals"`
	Payment       paymentDocument              `firestore:"payment"`
	PaymentStatus string                       `firestore:"paymentStatus"`
	Status        string                       `firestore:"status"`
	CancelReason  *string                      `firestore:"cancelReason,omitempty"`
	CanceledAt    *time.Time                   `firestore:"canceledAt,omitempty"`
	Version       int64                        `firestore:"version"`
	CreatedAt     time.Time                    `firestore:"createdAt"`
	UpdatedAt     time.Time                    `firestore:"updatedAt"`
}

// OrderRepository implements repositories.OrderRepository on a Firestore
// collection keyed by the four digit order number.
type OrderRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider, collection string) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("order repository requires a collection name")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, collection, nil, nil)
	return &OrderRepository{
		provider: provider,
		base:     base,
	}, nil
}

// Insert creates the order document. Writing an order number that already
// exists surfaces as a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	number := strings.TrimSpace(order.OrderNumber)
	if number == "" {
		return errors.New("order repository: order number is required")
	}
	_, err := r.base.Create(ctx, number, fromDomainOrder(order))
	return err
}

// Update replaces the stored document after verifying the caller holds the
// current version, then persists with the version incremented.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	number := strings.TrimSpace(order.OrderNumber)
	if number == "" {
		return errors.New("order repository: order number is required")
	}

	doc := fromDomainOrder(order)
	doc.Version = order.Version + 1
	doc.UpdatedAt = time.Now().UTC()

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, number)
		if err != nil {
			return err
		}
		snapshot, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var stored orderDocument
		if err := snapshot.DataTo(&stored); err != nil {
			return fmt.Errorf("firestore orders decode %s: %w", number, err)
		}
		if stored.Version != order.Version {
			return status.Errorf(codes.Aborted, "order %s version %d is stale, stored %d", number, order.Version, stored.Version)
		}
		doc.CreatedAt = stored.CreatedAt
		return tx.Set(ref, doc)
	})
	if err != nil {
		return pfirestore.WrapError("orders.update", err)
	}
	return nil
}

// FindByNumber fetches a single order.
func (r *OrderRepository) FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	number := strings.TrimSpace(orderNumber)
	if number == "" {
		return domain.Order{}, errors.New("order repository: order number is required")
	}
	doc, err := r.base.Get(ctx, number)
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(doc.ID, doc.Data), nil
}

// List returns orders matching the filter ordered by newest booking first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	fingerprint := orderFilterFingerprint(filter)

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		cursor, err := pagination.DecodeToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		if cursor.Filter != fingerprint {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("%w: token issued for a different filter", pagination.ErrInvalidPageToken)
		}
		createdAt, id, err := decodeOrderCursor(cursor)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		startAfter = []any{createdAt, id}
	}

	statusFilters := normaliseOrderStatuses(filter.Status)
	paymentFilters := normalisePaymentStatuses(filter.PaymentStatus)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if len(statusFilters) == 1 {
			q = q.Where("status", "==", statusFilters[0])
		} else if len(statusFilters) > 1 {
			// Firestore in clause supports up to 10 values.
			if len(statusFilters) > 10 {
				statusFilters = statusFilters[:10]
			}
			q = q.Where("status", "in", statusFilters)
		}

		if len(paymentFilters) == 1 {
			q = q.Where("paymentStatus", "==", paymentFilters[0])
		} else if len(paymentFilters) > 1 {
			if len(paymentFilters) > 10 {
				paymentFilters = paymentFilters[:10]
			}
			q = q.Where("paymentStatus", "in", paymentFilters)
		}

		if filter.Urgent != nil {
			q = q.Where("urgent", "==", *filter.Urgent)
		}
		if filter.CreatedRange.From != nil {
			q = q.Where("createdAt", ">=", filter.CreatedRange.From.UTC())
		}
		if filter.CreatedRange.To != nil {
			q = q.Where("createdAt", "<=", filter.CreatedRange.To.UTC())
		}

		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		last := valueDocs[len(valueDocs)-1]
		createdAt := last.Data.CreatedAt
		if createdAt.IsZero() {
			createdAt = last.CreateTime
		}
		token, err := pagination.EncodeToken(pagination.Cursor{
			StartAfter: []any{createdAt.UTC().Format(time.RFC3339Nano), last.ID},
			Filter:     fingerprint,
		})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		nextToken = token
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.Order, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, toDomainOrder(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.Order]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// ListNumbers returns every order document ID without decoding bodies.
func (r *OrderRepository) ListNumbers(ctx context.Context) ([]string, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	return r.base.ListIDs(ctx)
}

func decodeOrderCursor(cursor pagination.Cursor) (time.Time, string, error) {
	if len(cursor.StartAfter) != 2 {
		return time.Time{}, "", fmt.Errorf("%w: unexpected cursor shape", pagination.ErrInvalidPageToken)
	}
	rawTime, ok := cursor.StartAfter[0].(string)
	if !ok {
		return time.Time{}, "", fmt.Errorf("%w: cursor timestamp", pagination.ErrInvalidPageToken)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: cursor timestamp: %v", pagination.ErrInvalidPageToken, err)
	}
	id, ok := cursor.StartAfter[1].(string)
	if !ok || id == "" {
		return time.Time{}, "", fmt.Errorf("%w: cursor document id", pagination.ErrInvalidPageToken)
	}
	return createdAt, id, nil
}

func orderFilterFingerprint(filter repositories.OrderListFilter) string {
	var sb strings.Builder
	sb.WriteString("status=")
	sb.WriteString(strings.Join(normaliseOrderStatuses(filter.Status), ","))
	sb.WriteString(";payment=")
	sb.WriteString(strings.Join(normalisePaymentStatuses(filter.PaymentStatus), ","))
	sb.WriteString(";urgent=")
	if filter.Urgent != nil {
		sb.WriteString(fmt.Sprintf("%t", *filter.Urgent))
	}
	sb.WriteString(";from=")
	if filter.CreatedRange.From != nil {
		sb.WriteString(filter.CreatedRange.From.UTC().Format(time.RFC3339Nano))
	}
	sb.WriteString(";to=")
	if filter.CreatedRange.To != nil {
		sb.WriteString(filter.CreatedRange.To.UTC().Format(time.RFC3339Nano))
	}
	return sb.String()
}

func normaliseOrderStatuses(statuses []domain.OrderStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		trimmed := strings.TrimSpace(string(status))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalisePaymentStatuses(statuses []domain.PaymentStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		trimmed := strings.TrimSpace(string(status))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func fromDomainOrder(order domain.Order) orderDocument {
	items := make(map[string]orderItemDocument, len(order.Items))
	for itemType, item := range order.Items {
		items[itemType] = orderItemDocument{
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}

	entries := make([]paymentEntryDocument, 0, len(order.Payment.Entries))
	for _, entry := range order.Payment.Entries {
		entries = append(entries, paymentEntryDocument{
			ID:         entry.ID,
			Method:     string(entry.Method),
			Amount:     entry.Amount,
			RecordedAt: entry.RecordedAt.UTC(),
		})
	}

	doc := orderDocument{
		CustomerName: order.CustomerName,
		Phone:        order.Phone,
		ServiceType:  order.ServiceType,
		Urgent:       order.Urgent,
		PickupDate:   order.PickupDate,
		DeliveryDate: order.DeliveryDate,
		Instructions: order.Instructions,
		Items:        items,
		Discount: discountDocument{
			Type:  string(order.Discount.Type),
			Value: order.Discount.Value,
		},
		Tax: taxPolicyDocument{
			Enabled:     order.Tax.Enabled,
			SGSTPercent: order.Tax.SGSTPercent,
			CGSTPercent: order.Tax.CGSTPercent,
		},
		Totals: orderTotalsDocument{
			TotalItems:  order.Totals.TotalItems,
			Subtotal:    order.Totals.Subtotal,
			Discount:    order.Totals.Discount,
			TaxableBase: order.Totals.TaxableBase,
			SGST:        order.Totals.SGST,
			CGST:        order.Totals.CGST,
			GrandTotal:  order.Totals.GrandTotal,
		},
		Payment: paymentDocument{
			CashPaid:   order.Payment.CashPaid,
			OnlinePaid: order.Payment.OnlinePaid,
			Entries:    entries,
		},
		PaymentStatus: string(order.PaymentStatus),
		Status:        string(order.Status),
		CancelReason:  order.CancelReason,
		Version:       order.Version,
		CreatedAt:     order.CreatedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
	if order.CanceledAt != nil {
		canceled := order.CanceledAt.UTC()
		doc.CanceledAt = &canceled
	}
	return doc
}

func toDomainOrder(id string, doc orderDocument) domain.Order {
	items := make(map[string]domain.OrderItem, len(doc.Items))
	for itemType, item := range doc.Items {
		items[itemType] = domain.OrderItem{
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}

	entries := make([]domain.PaymentEntry, 0, len(doc.Payment.Entries))
	for _, entry := range doc.Payment.Entries {
		entries = append(entries, domain.PaymentEntry{
			ID:         entry.ID,
			Method:     domain.PaymentMethod(entry.Method),
			Amount:     entry.Amount,
			RecordedAt: entry.RecordedAt,
		})
	}

	return domain.Order{
		OrderNumber:  id,
		CustomerName: doc.CustomerName,
		Phone:        doc.Phone,
		ServiceType:  doc.ServiceType,
		Urgent:       doc.Urgent,
		PickupDate:   doc.PickupDate,
		DeliveryDate: doc.DeliveryDate,
		Instructions: doc.Instructions,
		Items:        items,
		Discount: domain.Discount{
			Type:  domain.DiscountType(doc.Discount.Type),
			Value: doc.Discount.Value,
		},
		Tax: domain.TaxPolicy{
			Enabled:     doc.Tax.Enabled,
			SGSTPercent: doc.Tax.SGSTPercent,
			CGSTPercent: doc.Tax.CGSTPercent,
		},
		Totals: domain.OrderTotals{
			TotalItems:  doc.Totals.TotalItems,
			Subtotal:    doc.Totals.Subtotal,
			Discount:    doc.Totals.Discount,
			TaxableBase: doc.Totals.TaxableBase,
			SGST:        doc.Totals.SGST,
			CGST:        doc.Totals.CGST,
			GrandTotal:  doc.Totals.GrandTotal,
		},
		Payment: domain.PaymentAllocation{
			CashPaid:   doc.Payment.CashPaid,
			OnlinePaid: doc.Payment.OnlinePaid,
			Entries:    entries,
		},
		PaymentStatus: domain.PaymentStatus(doc.PaymentStatus),
		Status:        domain.OrderStatus(doc.Status),
		CancelReason:  doc.CancelReason,
		CanceledAt:    doc.CanceledAt,
		Version:       doc.Version,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}
