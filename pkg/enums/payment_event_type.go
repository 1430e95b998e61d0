package enums

import "fmt"

// PaymentEventType labels entries in the append-only payment event log.
// The set mirrors the events the settlement layer emits.
type PaymentEventType string

const (
	PaymentEventBotRegistered      PaymentEventType = "bot_registered"
	PaymentEventPaymentProcessed   PaymentEventType = "payment_processed"
	PaymentEventPaymentFinalized   PaymentEventType = "payment_finalized"
	PaymentEventRefundProcessed    PaymentEventType = "refund_processed"
	PaymentEventBalanceWithdrawn   PaymentEventType = "balance_withdrawn"
	PaymentEventPlatformFeeUpdated PaymentEventType = "platform_fee_updated"
	PaymentEventTokenAdded         PaymentEventType = "token_added"
	PaymentEventTokenRemoved       PaymentEventType = "token_removed"
)

var validPaymentEventTypes = []PaymentEventType{
	PaymentEventBotRegistered,
	PaymentEventPaymentProcessed,
	PaymentEventPaymentFinalized,
	PaymentEventRefundProcessed,
	PaymentEventBalanceWithdrawn,
	PaymentEventPlatformFeeUpdated,
	PaymentEventTokenAdded,
	PaymentEventTokenRemoved,
}

// String implements fmt.Stringer.
func (p PaymentEventType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentEventType) IsValid() bool {
	for _, candidate := range validPaymentEventTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentEventType converts raw input into a PaymentEventType.
func ParsePaymentEventType(value string) (PaymentEventType, error) {
	for _, candidate := range validPaymentEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment event type %q", value)
}
