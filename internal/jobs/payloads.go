package jobs

import (
	"encoding/json"
	"time"
)

type VerificationEmailPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	RequestedAt time.Time `json:"requestedAt"`
}

type WelcomeEmailPayload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type PasswordResetEmailPayload struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	ResetURL string `json:"resetUrl"`
}

type ResetSuccessEmailPayload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// JSON helpers so handlers can enqueue without sprinkling marshal
// boilerplate.

func (p VerificationEmailPayload) JSON() (json.RawMessage, error) {
	return marshalRaw(p)
}

func (p WelcomeEmailPayload) JSON() (json.RawMessage, error) {
	return marshalRaw(p)
}

func (p PasswordResetEmailPayload) JSON() (json.RawMessage, error) {
	return marshalRaw(p)
}

func (p ResetSuccessEmailPayload) JSON() (json.RawMessage, error) {
	return marshalRaw(p)
}

func marshalRaw(v interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(v)

	if err != nil {
		return nil, err
	}

	return json.RawMessage(b), nil
}
