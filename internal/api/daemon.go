// Package api wires the Core to an HTTP surface following the teacher's
// (pre-cluster) lxd/api.go + lxd/daemon.go APIEndpoint/createCmd pattern:
// one APIEndpoint per resource, one APIEndpointAction per HTTP method,
// registered once against a gorilla/mux router. The teacher's
// authentication/authorization/cluster-notification machinery around
// createCmd has no home here — this daemon has no auth layer (see
// SPEC_FULL.md §2.2) — so createCmd is reduced to routing, content-type,
// and error rendering.
package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/nls90/bootd/internal/api/response"
	"github.com/nls90/bootd/internal/core"
	"github.com/nls90/bootd/internal/db"
)

// Daemon holds everything a handler needs to serve a request.
type Daemon struct {
	Core  *core.Core
	Store *db.Store
	Log   logrus.FieldLogger
}

// New returns a Daemon wired to c and store.
func New(c *core.Core, store *db.Store, log logrus.FieldLogger) *Daemon {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Daemon{Core: c, Store: store, Log: log}
}

// APIEndpoint represents one resource path in the API.
type APIEndpoint struct {
	Name   string // used only for logging.
	Path   string // path pattern, relative to the version prefix.
	Get    APIEndpointAction
	Post   APIEndpointAction
	Put    APIEndpointAction
	Patch  APIEndpointAction
	Delete APIEndpointAction
}

// APIEndpointAction is one HTTP method's handler for an APIEndpoint.
type APIEndpointAction struct {
	Handler func(d *Daemon, r *http.Request) response.Response
}

// createCmd registers c's non-empty actions against restAPI under the
// "/1.0/" prefix, matching the teacher's versioned-URL convention.
func (d *Daemon) createCmd(restAPI *mux.Router, c APIEndpoint) {
	uri := fmt.Sprintf("/1.0/%s", c.Path)

	restAPI.HandleFunc(uri, func(w http.ResponseWriter, r *http.Request) {
		log := d.Log.WithFields(logrus.Fields{"method": r.Method, "url": r.URL.Path})

		var action APIEndpointAction

		switch r.Method {
		case http.MethodGet:
			action = c.Get
		case http.MethodPost:
			action = c.Post
		case http.MethodPut:
			action = c.Put
		case http.MethodPatch:
			action = c.Patch
		case http.MethodDelete:
			action = c.Delete
		default:
			response.ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Render(w)
			return
		}

		if action.Handler == nil {
			response.ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Render(w)
			return
		}

		resp := action.Handler(d, r)
		if err := resp.Render(w); err != nil {
			log.WithError(err).Warn("failed rendering response")
		}
	}).Name(c.Name)
}

// NewRouter builds the full gorilla/mux router for the daemon.
func (d *Daemon) NewRouter() *mux.Router {
	router := mux.NewRouter()
	router.StrictSlash(false)
	router.SkipClean(true)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response.SyncResponse([]string{"/1.0"}).Render(w)
	})

	for _, c := range apiEndpoints {
		d.createCmd(router, c)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.ErrorResponse(http.StatusNotFound, "not found").Render(w)
	})

	return router
}
