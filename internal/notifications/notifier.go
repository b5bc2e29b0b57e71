package notifications

import "context"

type VerificationEmailInput struct {
	Email string
	Name  string
	Code  string
}

type WelcomeEmailInput struct {
	Email string
	Name  string
}

type PasswordResetEmailInput struct {
	Email    string
	ResetURL string
}

type ResetSuccessEmailInput struct {
	Email string
}

// Notifier is the transactional-email sink. Implementations must be
// safe for concurrent use; the worker calls them from several
// goroutines.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, in VerificationEmailInput) error
	SendWelcomeEmail(ctx context.Context, in WelcomeEmailInput) error
	SendPasswordResetEmail(ctx context.Context, in PasswordResetEmailInput) error
	SendResetSuccessEmail(ctx context.Context, in ResetSuccessEmailInput) error
}
