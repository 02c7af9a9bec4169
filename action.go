package writemusic

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/livefir/writemusic/internal/render"
	"github.com/livefir/writemusic/internal/vdom"
)

const (
	// ActionEdit carries the full text of the editable control
	ActionEdit = "edit"

	// ActionGeometry carries the measured size of the drawing region
	ActionGeometry = "geometry"
)

// Server to client frame types
const (
	FrameMount = "mount"
	FramePatch = "patch"
	FrameError = "error"
)

// ErrUnknownAction is returned for messages naming no known action
var ErrUnknownAction = errors.New("unknown action")

// message represents an action message from the client (internal protocol)
type message struct {
	Action string          `json:"action" validate:"required,oneof=edit geometry"`
	Data   json.RawMessage `json:"data"`
}

// EditData is the payload of an edit message. Text is a pointer so an
// empty editor is told apart from a missing field.
type EditData struct {
	Text *string `json:"text" validate:"required"`
}

// Frame is a server to client message
type Frame struct {
	Type    string           `json:"type"`
	Tree    *vdom.Node       `json:"tree,omitempty"`
	Ops     []vdom.Operation `json:"ops,omitempty"`
	Message string           `json:"message,omitempty"`
}

func mountFrame(tree *vdom.Node) Frame {
	return Frame{Type: FrameMount, Tree: tree}
}

func patchFrame(patch vdom.Patch) Frame {
	return Frame{Type: FramePatch, Ops: patch.Operations}
}

func errorFrame(err error) Frame {
	return Frame{Type: FrameError, Message: err.Error()}
}

// FieldError represents a validation error for a specific field
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewFieldError creates a field-specific error
func NewFieldError(field string, err error) FieldError {
	return FieldError{Field: field, Message: err.Error()}
}

// MultiError is a collection of field errors (implements error interface)
type MultiError []FieldError

func (m MultiError) Error() string {
	if len(m) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range m {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidationToMultiError converts go-playground/validator errors to MultiError
func ValidationToMultiError(err error) MultiError {
	var fieldErrors MultiError

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fieldErrors
	}

	for _, e := range validationErrs {
		fieldName := strings.ToLower(e.Field())

		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", e.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
		default:
			message = fmt.Sprintf("%s is invalid", e.Field())
		}

		fieldErrors = append(fieldErrors, FieldError{
			Field:   fieldName,
			Message: message,
		})
	}

	return fieldErrors
}

// validateStruct runs the validator and converts its errors
func validateStruct(validate *validator.Validate, v interface{}) error {
	if err := validate.Struct(v); err != nil {
		if fieldErrs := ValidationToMultiError(err); len(fieldErrs) > 0 {
			return fieldErrs
		}
		return err
	}
	return nil
}

// parseMessage decodes and validates the envelope of a client message
func parseMessage(data []byte, validate *validator.Validate) (message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return message{}, fmt.Errorf("failed to parse action: %w", err)
	}
	if err := validateStruct(validate, &msg); err != nil {
		return message{}, err
	}
	return msg, nil
}

// readBody reads an HTTP request body, refusing bodies larger than limit
// bytes
func readBody(r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read action: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrTextTooLong, limit)
	}
	return data, nil
}

// bindEdit extracts the text of an edit message
func bindEdit(msg message, validate *validator.Validate, maxLength int) (string, error) {
	var data EditData
	if err := bindData(msg, &data); err != nil {
		return "", err
	}
	if err := validateStruct(validate, &data); err != nil {
		return "", err
	}
	if len(*data.Text) > maxLength {
		return "", FieldError{
			Field:   "text",
			Message: fmt.Sprintf("text must be at most %d bytes", maxLength),
		}
	}
	return *data.Text, nil
}

// bindGeometry extracts the measurement of a geometry message
func bindGeometry(msg message, validate *validator.Validate) (render.Geometry, error) {
	var g render.Geometry
	if err := bindData(msg, &g); err != nil {
		return render.Geometry{}, err
	}
	if err := validateStruct(validate, &g); err != nil {
		return render.Geometry{}, err
	}
	return g, nil
}

func bindData(msg message, v interface{}) error {
	if len(msg.Data) == 0 {
		return FieldError{Field: "data", Message: "data is required"}
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return NewFieldError("data", err)
	}
	return nil
}
