package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Fblink88/appburguer-backend/internal/domain"
	"github.com/Fblink88/appburguer-backend/pkg/database"
	apperrors "github.com/Fblink88/appburguer-backend/pkg/errors"
)

// CheckoutRepository implements repository.CheckoutRepository using PostgreSQL.
type CheckoutRepository struct {
	pool database.DBTX
}

// NewCheckoutRepository creates a PostgreSQL-backed checkout session repository.
func NewCheckoutRepository(pool database.DBTX) *CheckoutRepository {
	return &CheckoutRepository{pool: pool}
}

const sessionColumns = `id, customer_ref, status, order_id, lines,
		contact_name, contact_phone, contact_email,
		delivery_mode, payment_mode, address_id, terms_accepted,
		subtotal, delivery_fee, total,
		customer_id, addresses, cities,
		payment_id, failure_reason,
		expires_at, created_at, updated_at`

// Create inserts a new checkout session.
func (r *CheckoutRepository) Create(ctx context.Context, session *domain.CheckoutSession) error {
	linesJSON, addressesJSON, citiesJSON, err := marshalSessionJSON(session)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO checkout_sessions (` + sessionColumns + `
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15,
			$16, $17, $18,
			$19, $20,
			$21, $22, $23
		)`

	_, err = r.pool.Exec(ctx, query,
		session.ID,
		session.CustomerRef,
		session.Status,
		session.OrderID,
		linesJSON,
		session.Contact.Name,
		session.Contact.Phone,
		session.Contact.Email,
		session.DeliveryMode,
		session.PaymentMode,
		session.AddressID,
		session.TermsAccepted,
		session.Subtotal,
		session.DeliveryFee,
		session.Total,
		session.CustomerID,
		addressesJSON,
		citiesJSON,
		nullableString(session.PaymentID),
		nullableString(session.FailureReason),
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}

	return nil
}

// GetByID retrieves a checkout session by its ID.
func (r *CheckoutRepository) GetByID(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1`
	return r.scanSession(ctx, query, id)
}

// GetActiveByCustomerRef retrieves the newest session for a customer that has
// not been finalized.
func (r *CheckoutRepository) GetActiveByCustomerRef(ctx context.Context, customerRef string) (*domain.CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM checkout_sessions
		WHERE customer_ref = $1 AND status <> 'finalized'
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanSession(ctx, query, customerRef)
}

// Update modifies an existing checkout session.
func (r *CheckoutRepository) Update(ctx context.Context, session *domain.CheckoutSession) error {
	linesJSON, addressesJSON, citiesJSON, err := marshalSessionJSON(session)
	if err != nil {
		return err
	}

	session.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE checkout_sessions
		SET status = $1, order_id = $2, lines = $3,
			contact_name = $4, contact_phone = $5, contact_email = $6,
			delivery_mode = $7, payment_mode = $8, address_id = $9, terms_accepted = $10,
			subtotal = $11, delivery_fee = $12, total = $13,
			customer_id = $14, addresses = $15, cities = $16,
			payment_id = $17, failure_reason = $18,
			expires_at = $19, updated_at = $20
		WHERE id = $21`

	ct, err := r.pool.Exec(ctx, query,
		session.Status,
		session.OrderID,
		linesJSON,
		session.Contact.Name,
		session.Contact.Phone,
		session.Contact.Email,
		session.DeliveryMode,
		session.PaymentMode,
		session.AddressID,
		session.TermsAccepted,
		session.Subtotal,
		session.DeliveryFee,
		session.Total,
		session.CustomerID,
		addressesJSON,
		citiesJSON,
		nullableString(session.PaymentID),
		nullableString(session.FailureReason),
		session.ExpiresAt,
		session.UpdatedAt,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("checkout_session", session.ID)
	}

	return nil
}

// scanSession executes a query expected to return a single session row.
func (r *CheckoutRepository) scanSession(ctx context.Context, query string, args ...any) (*domain.CheckoutSession, error) {
	var (
		session       domain.CheckoutSession
		linesJSON     []byte
		addressesJSON []byte
		citiesJSON    []byte
		paymentID     *string
		failureReason *string
	)

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&session.ID,
		&session.CustomerRef,
		&session.Status,
		&session.OrderID,
		&linesJSON,
		&session.Contact.Name,
		&session.Contact.Phone,
		&session.Contact.Email,
		&session.DeliveryMode,
		&session.PaymentMode,
		&session.AddressID,
		&session.TermsAccepted,
		&session.Subtotal,
		&session.DeliveryFee,
		&session.Total,
		&session.CustomerID,
		&addressesJSON,
		&citiesJSON,
		&paymentID,
		&failureReason,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan checkout session: %w", err)
	}

	if err := unmarshalSessionJSON(&session, linesJSON, addressesJSON, citiesJSON); err != nil {
		return nil, err
	}

	if paymentID != nil {
		session.PaymentID = *paymentID
	}
	if failureReason != nil {
		session.FailureReason = *failureReason
	}

	return &session, nil
}

func marshalSessionJSON(session *domain.CheckoutSession) (lines, addresses, cities []byte, err error) {
	if lines, err = json.Marshal(session.Lines); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal lines: %w", err)
	}
	if addresses, err = json.Marshal(session.Addresses); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal addresses: %w", err)
	}
	if cities, err = json.Marshal(session.Cities); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal cities: %w", err)
	}
	return lines, addresses, cities, nil
}

func unmarshalSessionJSON(session *domain.CheckoutSession, linesJSON, addressesJSON, citiesJSON []byte) error {
	if linesJSON != nil {
		if err := json.Unmarshal(linesJSON, &session.Lines); err != nil {
			return fmt.Errorf("unmarshal lines: %w", err)
		}
	}
	if session.Lines == nil {
		session.Lines = []domain.CartLine{}
	}

	if addressesJSON != nil {
		if err := json.Unmarshal(addressesJSON, &session.Addresses); err != nil {
			return fmt.Errorf("unmarshal addresses: %w", err)
		}
	}
	if session.Addresses == nil {
		session.Addresses = []domain.Address{}
	}

	if citiesJSON != nil {
		if err := json.Unmarshal(citiesJSON, &session.Cities); err != nil {
			return fmt.Errorf("unmarshal cities: %w", err)
		}
	}
	if session.Cities == nil {
		session.Cities = []domain.City{}
	}

	return nil
}

// nullableString returns nil for the empty string so optional columns stay
// NULL instead of "".
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
