// Package notify defines the outbound notification capability the
// credential core uses to deliver verification codes, and an SMTP-backed
// implementation.
package notify

import "context"

// Notifier delivers a verification code to an address. Any error means
// "could not deliver"; the caller decides what that means for the
// operation in progress.
type Notifier interface {
	Send(ctx context.Context, toAddress, code string) error
}
