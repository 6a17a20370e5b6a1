package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mediayaseer-arch/questpark-backend/internal/tickets"
	pkgerrors "github.com/mediayaseer-arch/questpark-backend/pkg/errors"
	"github.com/mediayaseer-arch/questpark-backend/pkg/logger"
	pkgredis "github.com/mediayaseer-arch/questpark-backend/pkg/redis"
)

// Store is the slice of the Redis client the repository needs. Tests
// substitute an in-memory implementation.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	MGet(ctx context.Context, keys ...string) ([]any, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key string, members ...any) error
	ZRevRangeN(ctx context.Context, key string, limit int64) ([]string, error)
	CheckoutDocKey(id string) string
	CheckoutIndexKey() string
}

// Repository persists submissions as JSON documents keyed by id, with a
// sorted-set index scored by creation time for newest-first listing.
type Repository struct {
	store        Store
	logg         *logger.Logger
	historyLimit int
	now          func() time.Time
}

// NewRepository builds a Repository. A zero historyLimit disables trimming.
func NewRepository(store Store, logg *logger.Logger, historyLimit int) *Repository {
	return &Repository{
		store:        store,
		logg:         logg,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// WithClock overrides the repository clock. Test hook.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// storedSubmission mirrors Submission but keeps timestamps raw so documents
// written by older builds, which stored epoch milliseconds, still decode.
type storedSubmission struct {
	ID                   string              `json:"id"`
	Billing              Billing             `json:"billing"`
	VisitDateISO         *string             `json:"visitDate"`
	VisitTime            *string             `json:"visitTime"`
	Items                []tickets.OrderItem `json:"items"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	Total                decimal.Decimal     `json:"total"`
	Payment              Payment             `json:"payment"`
	PaymentUpdateHistory []HistoryEntry      `json:"paymentUpdateHistory"`
	CreatedAt            json.RawMessage     `json:"createdAt"`
	UpdatedAt            json.RawMessage     `json:"updatedAt"`
}

// Create persists a new submission built from validated input and returns it.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Submission, error) {
	now := r.now().UTC()
	sub := &Submission{
		ID:           uuid.NewString(),
		Billing:      input.Billing,
		VisitDateISO: input.VisitDateISO,
		VisitTime:    input.VisitTime,
		Items:        input.Items,
		Subtotal:     input.Subtotal,
		Total:        input.Total,
		Payment: Payment{
			CardholderName:   input.Payment.CardholderName,
			CardNumberMasked: MaskCardNumber(input.Payment.CardNumber),
			Expiry:           input.Payment.Expiry,
			Status:           input.Payment.Status,
		},
		PaymentUpdateHistory: []HistoryEntry{},
		CreatedAt:            now.Format(time.RFC3339Nano),
		UpdatedAt:            now.Format(time.RFC3339Nano),
	}

	if err := r.write(ctx, sub); err != nil {
		return nil, err
	}
	if err := r.store.ZAdd(ctx, r.store.CheckoutIndexKey(), float64(now.UnixMilli()), sub.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to index checkout submission")
	}
	return sub, nil
}

// Get loads one submission by id.
func (r *Repository) Get(ctx context.Context, id string) (*Submission, error) {
	raw, err := r.store.Get(ctx, r.store.CheckoutDocKey(id))
	if err != nil {
		if pkgredis.IsNil(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout submission not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load checkout submission")
	}
	sub, err := decodeSubmission([]byte(raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored checkout submission is malformed")
	}
	return sub, nil
}

// List returns up to limit submissions, newest first. Documents that fail to
// decode are skipped with a warning rather than failing the whole listing; a
// single corrupt record must not take the dashboard down.
func (r *Repository) List(ctx context.Context, limit int) ([]Submission, error) {
	ids, err := r.store.ZRevRangeN(ctx, r.store.CheckoutIndexKey(), int64(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list checkout submissions")
	}
	if len(ids) == 0 {
		return []Submission{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.store.CheckoutDocKey(id)
	}
	raws, err := r.store.MGet(ctx, keys...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load checkout submissions")
	}

	out := make([]Submission, 0, len(raws))
	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			// Index entry without a document, likely an expired or
			// manually deleted key. Drop it from the index.
			_ = r.store.ZRem(ctx, r.store.CheckoutIndexKey(), ids[i])
			continue
		}
		sub, err := decodeSubmission([]byte(str))
		if err != nil {
			r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), fmt.Sprintf("skipping malformed checkout document %s", ids[i]))
			continue
		}
		out = append(out, *sub)
	}
	return out, nil
}

// UpdateStatus applies a review decision to a stored submission. The previous
// payment review fields are appended to the history chain, capped at the
// configured limit by dropping the oldest entries.
func (r *Repository) UpdateStatus(ctx context.Context, id string, update StatusUpdateInput) (*Submission, error) {
	sub, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC().Format(time.RFC3339Nano)
	entry := HistoryEntry{
		UpdatedAt:            now,
		PreviousStatus:       sub.Payment.Status,
		PreviousOTPCode:      sub.Payment.OTPCode,
		PreviousErrorMessage: sub.Payment.ErrorMessage,
		NextStatus:           update.Status,
		NextOTPCode:          update.OTPCode,
		NextErrorMessage:     update.ErrorMessage,
	}
	sub.PaymentUpdateHistory = append(sub.PaymentUpdateHistory, entry)
	if r.historyLimit > 0 && len(sub.PaymentUpdateHistory) > r.historyLimit {
		sub.PaymentUpdateHistory = sub.PaymentUpdateHistory[len(sub.PaymentUpdateHistory)-r.historyLimit:]
	}

	sub.Payment.Status = update.Status
	sub.Payment.OTPCode = update.OTPCode
	sub.Payment.ErrorMessage = update.ErrorMessage
	sub.UpdatedAt = now

	if err := r.write(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *Repository) write(ctx context.Context, sub *Submission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode checkout submission")
	}
	if err := r.store.Set(ctx, r.store.CheckoutDocKey(sub.ID), payload, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to store checkout submission")
	}
	return nil
}

func decodeSubmission(raw []byte) (*Submission, error) {
	var stored storedSubmission
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	if stored.ID == "" {
		return nil, fmt.Errorf("document has no id")
	}
	if !stored.Payment.Status.IsValid() {
		return nil, fmt.Errorf("document has unknown payment status %q", stored.Payment.Status)
	}
	sub := &Submission{
		ID:                   stored.ID,
		Billing:              stored.Billing,
		VisitDateISO:         stored.VisitDateISO,
		VisitTime:            stored.VisitTime,
		Items:                stored.Items,
		Subtotal:             stored.Subtotal,
		Total:                stored.Total,
		Payment:              stored.Payment,
		PaymentUpdateHistory: stored.PaymentUpdateHistory,
		CreatedAt:            coerceTimestamp(stored.CreatedAt),
		UpdatedAt:            coerceTimestamp(stored.UpdatedAt),
	}
	if sub.PaymentUpdateHistory == nil {
		sub.PaymentUpdateHistory = []HistoryEntry{}
	}
	return sub, nil
}

// coerceTimestamp accepts either an RFC 3339 string or epoch milliseconds and
// normalizes to the string form. Unparseable values come back empty.
func coerceTimestamp(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asMillis int64
	if err := json.Unmarshal(raw, &asMillis); err == nil {
		return time.UnixMilli(asMillis).UTC().Format(time.RFC3339Nano)
	}
	return ""
}
