package jobs

// Job types the worker knows how to execute. All of them are
// outbound-email dispatches.
const (
	TypeVerificationEmail = "email.verification"
	TypeWelcomeEmail      = "email.welcome"
	TypePasswordResetEmail = "email.password_reset"
	TypeResetSuccessEmail  = "email.reset_success"
)

func IsKnownType(t string) bool {
	switch t {
	case TypeVerificationEmail, TypeWelcomeEmail, TypePasswordResetEmail, TypeResetSuccessEmail:
		return true
	default:
		return false
	}
}
