package writemusic

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/livefir/writemusic/internal/memory"
)

func TestParseMessage(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name    string
		data    string
		action  string
		wantErr string
	}{
		{"edit", `{"action":"edit","data":{"text":"Hi."}}`, ActionEdit, ""},
		{"geometry", `{"action":"geometry","data":{"height":10,"lineHeight":"20px"}}`, ActionGeometry, ""},
		{"bad json", `{"action":`, "", "failed to parse action"},
		{"missing action", `{"data":{}}`, "", "Action is required"},
		{"unknown action", `{"action":"dance"}`, "", "Action must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := parseMessage([]byte(tt.data), validate)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Action != tt.action {
				t.Errorf("action = %q, want %q", msg.Action, tt.action)
			}
		})
	}
}

func TestBindEdit(t *testing.T) {
	validate := validator.New()

	parse := func(data string) message {
		t.Helper()
		msg, err := parseMessage([]byte(data), validate)
		if err != nil {
			t.Fatalf("parseMessage failed: %v", err)
		}
		return msg
	}

	text, err := bindEdit(parse(`{"action":"edit","data":{"text":""}}`), validate, 10)
	if err != nil || text != "" {
		t.Errorf("an empty editor is a valid edit, got %q, %v", text, err)
	}

	_, err = bindEdit(parse(`{"action":"edit","data":{}}`), validate, 10)
	var multi MultiError
	if !errors.As(err, &multi) || len(multi) != 1 || multi[0].Field != "text" {
		t.Errorf("expected a text field error, got %v", err)
	}

	_, err = bindEdit(parse(`{"action":"edit"}`), validate, 10)
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "data" {
		t.Errorf("expected a data field error, got %v", err)
	}

	_, err = bindEdit(parse(`{"action":"edit","data":{"text":"twelve chars"}}`), validate, 10)
	if !errors.As(err, &fieldErr) || fieldErr.Field != "text" {
		t.Errorf("expected a length error, got %v", err)
	}

	_, err = bindEdit(parse(`{"action":"edit","data":{"text":42}}`), validate, 10)
	if !errors.As(err, &fieldErr) {
		t.Errorf("expected a bind error for a number, got %v", err)
	}
}

func TestBindGeometry(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", `{"height":96.5,"lineHeight":"24px"}`, false},
		{"normal line height", `{"height":96,"lineHeight":"normal"}`, false},
		{"negative height", `{"height":-1,"lineHeight":"24px"}`, true},
		{"missing line height", `{"height":96}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := message{Action: ActionGeometry, Data: []byte(tt.data)}
			g, err := bindGeometry(msg, validate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("bindGeometry() = %+v, %v", g, err)
			}
		})
	}
}

func TestMultiError(t *testing.T) {
	err := MultiError{
		{Field: "text", Message: "text is required"},
		{Field: "action", Message: "action is invalid"},
	}
	if got := err.Error(); got != "text: text is required; action: action is invalid" {
		t.Errorf("Error() = %q", got)
	}
	if (MultiError{}).Error() != "" {
		t.Error("an empty MultiError should have an empty message")
	}
	if ValidationToMultiError(errors.New("plain")) != nil {
		t.Error("non-validation errors should convert to nothing")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: body exceeds 10 bytes", ErrTextTooLong), http.StatusRequestEntityTooLarge},
		{fmt.Errorf("wrapped: %w", memory.ErrLimitExceeded), http.StatusServiceUnavailable},
		{FieldError{Field: "text", Message: "too long"}, http.StatusBadRequest},
		{MultiError{{Field: "action"}}, http.StatusBadRequest},
		{fmt.Errorf("%w: %q", ErrUnknownAction, "dance"), http.StatusBadRequest},
		{errors.New("render failed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
