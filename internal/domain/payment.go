package domain

import (
	"strconv"
	"time"
)

// PendingOrderRef marks that a server-side order exists and is awaiting
// checkout. At most one exists per customer; entering checkout without one
// redirects back to the cart.
type PendingOrderRef struct {
	OrderID   int64     `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingPayment marks an order handed off to the payment gateway. Written
// before the redirect, cleared when the success landing reconciles it.
type PendingPayment struct {
	OrderID   int64     `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GatewayOutcome is the typed form of the query parameters the payment
// gateway appends to its return redirect.
type GatewayOutcome struct {
	Status       string
	StatusDetail string
	PaymentID    string
	ExternalRef  string
}

// declineReasons maps the gateway's card decline codes to user-facing causes.
var declineReasons = map[string]string{
	"cc_rejected_insufficient_amount":    "the card has insufficient funds",
	"cc_rejected_bad_filled_card_number": "the card number was entered incorrectly",
	"cc_rejected_bad_filled_security_code": "the security code was entered incorrectly",
	"cc_rejected_bad_filled_date":        "the expiry date was entered incorrectly",
	"cc_rejected_call_for_authorize":     "the card issuer requires authorization for this charge",
	"cc_rejected_card_disabled":          "the card is disabled; contact the issuer",
	"cc_rejected_high_risk":              "the payment was declined by the fraud checks",
	"cc_rejected_max_attempts":           "the maximum number of attempts was reached",
}

// DeclineReason maps a gateway decline code to a human-readable cause.
// Unknown codes fall back to a generic rejection message.
func DeclineReason(code string) string {
	if reason, ok := declineReasons[code]; ok {
		return reason
	}
	return "the payment was rejected"
}

// FormatAmount renders an integer amount for display with dot thousands
// separators and a currency sign, e.g. 7990 -> "$7.990".
func FormatAmount(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}

	if negative {
		return "-$" + string(out)
	}
	return "$" + string(out)
}
