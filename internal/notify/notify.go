// Package notify delivers transactional account email.
package notify

import "context"

type Mailer interface {
	SendVerifyEmail(ctx context.Context, to, link string) error
	SendResetPassword(ctx context.Context, to, link string) error
	SendSetPassword(ctx context.Context, to, link string) error
}
