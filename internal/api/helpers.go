package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nls90/bootd/internal/api/response"
)

// idFromRequest parses the {id} path variable.
func idFromRequest(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}

	return id, nil
}

// idFromQuery parses an optional int64 query parameter, returning 0 if
// absent.
func idFromQuery(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}

	return id, nil
}

// decodeJSON decodes the request body into dst, tolerating an empty body
// (every PATCH action in spec.md §6 takes an optional body).
func decodeJSON(r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}

	return json.NewDecoder(r.Body).Decode(dst)
}

func badRequest(format string, args ...any) response.Response {
	return response.BadRequest(fmt.Errorf(format, args...))
}
