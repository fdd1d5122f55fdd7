package pipeline

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Validation messages returned to callers.
const (
	MsgInvalidJSON   = "Invalid JSON"
	MsgEmailRequired = "Email required"
)

type wireRequest struct {
	Email  *string `json:"email"`
	Source *string `json:"source"`
}

// DecodeRequest reads one JSON object from r. An absent source becomes
// DefaultSource; an explicit empty string is kept as is.
func DecodeRequest(r io.Reader) (Request, error) {
	var w wireRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&w); err != nil {
		return Request{}, &ValidationError{Message: MsgInvalidJSON, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Request{}, &ValidationError{Message: MsgInvalidJSON, Err: errors.New("unexpected data after request body")}
	}

	req := Request{Source: DefaultSource}
	if w.Email != nil {
		req.Email = *w.Email
	}
	if w.Source != nil {
		req.Source = *w.Source
	}
	return req, Validate(req)
}

// Validate checks that req names a destination.
func Validate(req Request) error {
	if strings.TrimSpace(req.Email) == "" {
		return &ValidationError{Message: MsgEmailRequired}
	}
	return nil
}
