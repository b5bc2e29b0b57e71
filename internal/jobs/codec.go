package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownType    = errors.New("unknown job type")
	ErrInvalidPayload = errors.New("invalid job payload")
)

// Decode unmarshals and sanity-checks the payload for a given job
// type. The worker refuses to execute anything that fails here so a
// malformed row dies quickly instead of burning retries.
func Decode(jobType string, raw json.RawMessage) (interface{}, error) {
	switch jobType {
	case TypeVerificationEmail:
		var p VerificationEmailPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return nil, err
		}
		if p.Email == "" || p.Code == "" {
			return nil, fmt.Errorf("%w: email and code are required", ErrInvalidPayload)
		}
		return p, nil

	case TypeWelcomeEmail:
		var p WelcomeEmailPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return nil, err
		}
		if p.Email == "" {
			return nil, fmt.Errorf("%w: email is required", ErrInvalidPayload)
		}
		return p, nil

	case TypePasswordResetEmail:
		var p PasswordResetEmailPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return nil, err
		}
		if p.Email == "" || p.ResetURL == "" {
			return nil, fmt.Errorf("%w: email and resetUrl are required", ErrInvalidPayload)
		}
		return p, nil

	case TypeResetSuccessEmail:
		var p ResetSuccessEmailPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return nil, err
		}
		if p.Email == "" {
			return nil, fmt.Errorf("%w: email is required", ErrInvalidPayload)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, jobType)
	}
}

func strictUnmarshal(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return nil
}
