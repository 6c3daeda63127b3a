// Package notification delivers short text messages to phone numbers.
// Delivery is best-effort: callers log failures but do not retry here.
package notification

import "context"

// Gateway sends a text message to a phone number and returns a
// provider-assigned delivery ID.
type Gateway interface {
	Send(ctx context.Context, phoneNumber, text string) (string, error)
}
