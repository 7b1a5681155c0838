// Package callable implements the Firebase callable HTTPS protocol:
// requests carry {"data": ...}, responses carry {"result": ...} or {"error": ...}.
package callable

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxRequestBytes caps the size of a callable request body.
const MaxRequestBytes = 1 << 20

type Code string

const (
	Unauthenticated    Code = "unauthenticated"
	InvalidArgument    Code = "invalid-argument"
	NotFound           Code = "not-found"
	FailedPrecondition Code = "failed-precondition"
	Internal           Code = "internal"
)

var codeStatus = map[Code]struct {
	name string
	http int
}{
	Unauthenticated:    {"UNAUTHENTICATED", http.StatusUnauthorized},
	InvalidArgument:    {"INVALID_ARGUMENT", http.StatusBadRequest},
	NotFound:           {"NOT_FOUND", http.StatusNotFound},
	FailedPrecondition: {"FAILED_PRECONDITION", http.StatusBadRequest},
	Internal:           {"INTERNAL", http.StatusInternalServerError},
}

// Status is the wire name of the code, e.g. "NOT_FOUND".
func (c Code) Status() string {
	if s, ok := codeStatus[c]; ok {
		return s.name
	}
	return codeStatus[Internal].name
}

func (c Code) HTTPStatus() int {
	if s, ok := codeStatus[c]; ok {
		return s.http
	}
	return http.StatusInternalServerError
}

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code of a callable error anywhere in the chain, Internal otherwise.
func CodeOf(err error) Code {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code
	}
	return Internal
}

type request struct {
	Data json.RawMessage `json:"data"`
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Decode reads the callable envelope and unmarshals its data field into v.
func Decode(r *http.Request, v any) error {
	if r.Method != http.MethodPost {
		return Errorf(InvalidArgument, "method %s is not allowed", r.Method)
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBytes+1))
	if err != nil {
		return Errorf(Internal, "error while reading request body: %v", err)
	}
	if len(body) > MaxRequestBytes {
		return Errorf(InvalidArgument, "request body exceeds %d bytes", MaxRequestBytes)
	}
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		return Errorf(InvalidArgument, "bad request: %v", err)
	}
	if len(req.Data) == 0 {
		return Errorf(InvalidArgument, "bad request: missing data field")
	}
	if err := json.Unmarshal(req.Data, v); err != nil {
		return Errorf(InvalidArgument, "bad request: %v", err)
	}
	return nil
}

func WriteResult(w http.ResponseWriter, result any) error {
	return write(w, http.StatusOK, map[string]any{"result": result})
}

// WriteError writes err as a callable error. Errors that are not *Error are
// reported as INTERNAL with their message.
func WriteError(w http.ResponseWriter, err error) error {
	var cerr *Error
	if !errors.As(err, &cerr) {
		cerr = &Error{Code: Internal, Message: err.Error()}
	}
	return write(w, cerr.Code.HTTPStatus(), map[string]any{
		"error": errorBody{
			Status:  cerr.Code.Status(),
			Message: cerr.Message,
		},
	})
}

func write(w http.ResponseWriter, status int, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
