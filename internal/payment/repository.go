package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Record is the stored view of a payment created through this service or
// first seen through a webhook.
type Record struct {
	ID           int64
	Provider     Provider
	PaymentID    string
	OrderID      string
	Amount       decimal.Decimal
	Currency     string
	Status       Status
	NativeStatus string
	CheckoutURL  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StatusUpdate is a requested transition, usually derived from a webhook.
type StatusUpdate struct {
	Provider     Provider
	PaymentID    string
	OrderID      string
	Status       Status
	NativeStatus string
	Amount       decimal.Decimal
	Currency     string
	Source       string
}

// Transition reports what ApplyStatus did. Applied is false when the
// update was stale or a no-op.
type Transition struct {
	From    Status
	To      Status
	Applied bool
}

type Repository interface {
	SavePayment(ctx context.Context, rec *Record) error
	GetPayment(ctx context.Context, provider Provider, paymentID string) (*Record, error)
	ApplyStatus(ctx context.Context, upd StatusUpdate) (Transition, error)

	SavePaymentWebhook(ctx context.Context, evt *WebhookEvent, signatureValid bool) (webhookID int64, isDuplicate bool, err error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePayment(ctx context.Context, rec *Record) error {
	const q = `
	INSERT INTO payments (
		provider,
		payment_id,
		order_id,
		amount,
		currency,
		status,
		native_status,
		checkout_url
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (provider, payment_id)
	DO NOTHING;
	`

	_, err := r.db.ExecContext(ctx, q,
		string(rec.Provider), rec.PaymentID, rec.OrderID, rec.Amount,
		rec.Currency, string(rec.Status), rec.NativeStatus, rec.CheckoutURL,
	)
	return err
}

func (r *repository) GetPayment(ctx context.Context, provider Provider, paymentID string) (*Record, error) {
	const q = `
	SELECT id, provider, payment_id, order_id, amount, currency, status, native_status, checkout_url, created_at, updated_at
	FROM payments
	WHERE provider = $1 AND payment_id = $2;
	`

	var (
		rec    Record
		prov   string
		status string
	)
	err := r.db.QueryRowContext(ctx, q, string(provider), paymentID).Scan(
		&rec.ID, &prov, &rec.PaymentID, &rec.OrderID, &rec.Amount, &rec.Currency,
		&status, &rec.NativeStatus, &rec.CheckoutURL, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Provider = Provider(prov)
	rec.Status = Status(status)
	return &rec, nil
}

// ApplyStatus moves a stored payment to upd.Status when the transition is
// allowed, recording the change in payment_status_history. Unknown payments
// are inserted with the new status; the insert and the row lock go through
// the unique key so concurrent first deliveries serialize on one row.
func (r *repository) ApplyStatus(ctx context.Context, upd StatusUpdate) (Transition, error) {
	tr := Transition{To: upd.Status}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return tr, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
	INSERT INTO payments (provider, payment_id, order_id, amount, currency, status, native_status)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (provider, payment_id) DO NOTHING
	RETURNING id;
	`,
		string(upd.Provider), upd.PaymentID, upd.OrderID, upd.Amount,
		upd.Currency, string(upd.Status), upd.NativeStatus,
	).Scan(&id)

	switch {
	case err == nil:
		// new row, From stays empty
	case !errors.Is(err, sql.ErrNoRows):
		return tr, fmt.Errorf("insert payment: %w", err)
	default:
		var current string
		err = tx.QueryRowContext(ctx, `
		SELECT status FROM payments
		WHERE provider = $1 AND payment_id = $2
		FOR UPDATE;
		`, string(upd.Provider), upd.PaymentID).Scan(&current)
		if err != nil {
			return tr, fmt.Errorf("lock payment: %w", err)
		}

		tr.From = Status(current)
		if !tr.From.CanTransitionTo(upd.Status) {
			return tr, nil
		}
		_, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, native_status = $2, updated_at = now()
		WHERE provider = $3 AND payment_id = $4;
		`, string(upd.Status), upd.NativeStatus, string(upd.Provider), upd.PaymentID)
		if err != nil {
			return tr, fmt.Errorf("update payment: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO payment_status_history (provider, payment_id, from_status, to_status, native_status, source)
	VALUES ($1, $2, $3, $4, $5, $6);
	`,
		string(upd.Provider), upd.PaymentID, string(tr.From), string(upd.Status),
		upd.NativeStatus, upd.Source,
	)
	if err != nil {
		return tr, fmt.Errorf("insert history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return tr, fmt.Errorf("commit: %w", err)
	}

	tr.Applied = true
	return tr, nil
}

func (r *repository) SavePaymentWebhook(ctx context.Context, evt *WebhookEvent, signatureValid bool) (int64, bool, error) {
	const q = `
	INSERT INTO payment_webhooks (
		provider,
		dedupe_key,
		event_id,
		event_type,
		payment_id,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (provider, dedupe_key)
	DO NOTHING
	RETURNING id;
	`

	payload := []byte(evt.Payload)
	if payload == nil {
		payload = []byte("{}")
	}

	var id int64
	err := r.db.QueryRowContext(ctx, q,
		string(evt.Provider),
		evt.DedupeKey(),
		evt.EventID,
		evt.Type,
		evt.PaymentID,
		signatureValid,
		payload,
	).Scan(&id)

	if err != nil {
		// conflict returns no row: already stored
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}

	return id, false, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	const q = `
	UPDATE payment_webhooks
	SET processed_at = now()
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	const q = `
	UPDATE payment_webhooks
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID, reason)
	return err
}
