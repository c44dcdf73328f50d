// Package response defines the JSON envelope every HTTP handler returns,
// modeled on the teacher's Response interface
// (daemon/daemon_smart_response.go) generalized to the plain sync/error
// shapes this API needs; there is no async operation envelope here since
// every Core call in this daemon is synchronous.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nls90/bootd/internal/coreerr"
)

// Response is rendered onto an http.ResponseWriter by the caller once a
// handler has finished building it.
type Response interface {
	Render(w http.ResponseWriter) error
	String() string
}

type syncResponse struct {
	code     int
	metadata any
}

func (r *syncResponse) Render(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.code)

	return json.NewEncoder(w).Encode(r.metadata)
}

func (r *syncResponse) String() string {
	if r.code == http.StatusOK {
		return "success"
	}

	return "failure"
}

// SyncResponse wraps metadata in a 200 JSON body as-is (the envelope shapes
// in spec.md §6, e.g. {result, lun, iqn, message}, are built by the caller
// and passed straight through).
func SyncResponse(metadata any) Response {
	return &syncResponse{code: http.StatusOK, metadata: metadata}
}

// Created is SyncResponse at 201, used by resource creation endpoints.
func Created(metadata any) Response {
	return &syncResponse{code: http.StatusCreated, metadata: metadata}
}

// NoContent is the envelope for a successful delete.
func NoContent() Response {
	return &syncResponse{code: http.StatusNoContent, metadata: nil}
}

type textResponse struct {
	code int
	body string
}

func (r *textResponse) Render(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(r.code)
	_, err := w.Write([]byte(r.body))

	return err
}

func (r *textResponse) String() string {
	if r.code == http.StatusOK {
		return "success"
	}

	return "failure"
}

// Text wraps a plain-text body, used by the dump/restore/recreate
// endpoints (spec.md §6: "text, 200 or 417").
func Text(code int, body string) Response {
	return &textResponse{code: code, body: body}
}

type errorResponse struct {
	code    int
	message string
}

func (r *errorResponse) Render(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.code)

	return json.NewEncoder(w).Encode(map[string]any{
		"error":      r.message,
		"error_code": r.code,
	})
}

func (r *errorResponse) String() string {
	return "failure"
}

// ErrorResponse wraps an arbitrary status code and message.
func ErrorResponse(code int, message string) Response {
	return &errorResponse{code: code, message: message}
}

// BadRequest is a 400 parse error, the error-handling design's mapping for
// NotFound and Invariant failures at the API boundary.
func BadRequest(err error) Response {
	return ErrorResponse(http.StatusBadRequest, err.Error())
}

// ExpectationFailed is a 417, used by dump/restore when the underlying LVM
// command fails.
func ExpectationFailed(message string) Response {
	return Text(http.StatusExpectationFailed, message)
}

// InternalError is a 500, reserved for failures the taxonomy doesn't
// classify (a bug, not an expected operational failure).
func InternalError(err error) Response {
	return ErrorResponse(http.StatusInternalServerError, err.Error())
}

// FromError maps a Core-boundary error to its HTTP envelope per spec.md
// §7's propagation policy table: NotFound and Invariant surface as 400
// parse errors (Invariant additionally guarantees no metadata mutation
// happened, enforced by the Core itself before this layer ever sees the
// error); Conflict surfaces as a 200 sync envelope carrying result:false,
// matching the shape automatic flows already return inline; External
// surfaces as 417. Boot/map flows return their {result:false} outcomes
// inside BootResult; only their errors (store, lock or tgtadm failures)
// reach here.
func FromError(err error) Response {
	var ce *coreerr.Error
	if errors.As(err, &ce) {
		switch ce.Kind {
		case coreerr.KindNotFound, coreerr.KindInvariant:
			return BadRequest(ce)
		case coreerr.KindConflict:
			return SyncResponse(map[string]any{"result": false, "message": ce.Message})
		case coreerr.KindExternal:
			return ExpectationFailed(ce.Message)
		}
	}

	return InternalError(err)
}
