package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// maxBodyBytes bounds the size of a request body
const maxBodyBytes = 1 << 20

// HTTPError is an error that maps directly to a response status. Message is
// sent to the client; Err is for logs only.
type HTTPError struct {
	Code    int
	Kind    string
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	OCRSample string `json:"ocr_sample,omitempty"`
}

type successBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// internalErrorBody is sent when a response cannot be encoded
const internalErrorBody = `{"success":false,"error":"Internal server error","kind":"processing_failure"}` + "\n"

// JSONResponse writes data with the given status. When data cannot be encoded
// a 500 is written instead and the encoding error is returned.
func JSONResponse(w http.ResponseWriter, status int, data any) error {
	body, err := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, internalErrorBody)
		return fmt.Errorf("encode response: %w", err)
	}
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

func SuccessResponse(w http.ResponseWriter, data any) error {
	return JSONResponse(w, http.StatusOK, successBody{Success: true, Data: data})
}

func JSONError(w http.ResponseWriter, status int, kind, message string) error {
	return JSONResponse(w, status, errorBody{Error: message, Kind: kind})
}

func HandleError(w http.ResponseWriter, err error) error {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return JSONError(w, httpErr.Code, httpErr.Kind, httpErr.Message)
	}
	return JSONError(w, http.StatusInternalServerError, "", "Internal server error")
}

// DecodeJSON decodes a JSON request body into v
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return &HTTPError{
			Code:    http.StatusUnsupportedMediaType,
			Kind:    "invalid_input",
			Message: "Content-Type must be application/json",
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &HTTPError{
			Code:    http.StatusBadRequest,
			Kind:    "invalid_input",
			Message: "Invalid JSON payload",
			Err:     err,
		}
	}
	return nil
}
