package notifications

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogNotifier writes notifications to the process log instead of
// sending mail. Used in dev and in tests.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) SendVerificationEmail(ctx context.Context, in VerificationEmailInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("notification.verification email=%s name=%s code=%s", in.Email, in.Name, in.Code)
	return nil
}

func (n *LogNotifier) SendWelcomeEmail(ctx context.Context, in WelcomeEmailInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("notification.welcome email=%s name=%s", in.Email, in.Name)
	return nil
}

func (n *LogNotifier) SendPasswordResetEmail(ctx context.Context, in PasswordResetEmailInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("notification.password_reset email=%s url=%s", in.Email, in.ResetURL)
	return nil
}

func (n *LogNotifier) SendResetSuccessEmail(ctx context.Context, in ResetSuccessEmailInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("notification.reset_success email=%s", in.Email)
	return nil
}

// simulateProvider lets local runs mimic a slow or failing provider.
func simulateProvider(ctx context.Context) error {
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	return nil
}
