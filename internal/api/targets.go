package api

import (
	"net/http"

	"github.com/nls90/bootd/internal/api/response"
	"github.com/nls90/bootd/internal/db"
)

var targetsCmd = APIEndpoint{
	Name: "targets",
	Path: "targets",
	Get:  APIEndpointAction{Handler: targetsGet},
	Post: APIEndpointAction{Handler: targetsPost},
}

var targetCmd = APIEndpoint{
	Name:   "target",
	Path:   "targets/{id}",
	Get:    APIEndpointAction{Handler: targetGet},
	Put:    APIEndpointAction{Handler: targetPut},
	Delete: APIEndpointAction{Handler: targetDelete},
}

var targetBootDiskInfoCmd = APIEndpoint{
	Name: "target_get_boot_disk_info",
	Path: "targets/{id}/get_boot_disk_info",
	Get:  APIEndpointAction{Handler: targetGetBootDiskInfo},
}

var targetMapDiskInfoCmd = APIEndpoint{
	Name: "target_get_map_disk_info",
	Path: "targets/{id}/get_map_disk_info",
	Get:  APIEndpointAction{Handler: targetGetMapDiskInfo},
}

// targetsGet implements TargetViewSet.get_queryset: list, optionally
// filtered by ?mac_address=.
func targetsGet(d *Daemon, r *http.Request) response.Response {
	mac := r.URL.Query().Get("mac_address")

	targets, err := d.Store.ListTargets(mac)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(targets)
}

type targetRequest struct {
	Name        string `json:"name"`
	Boot        bool   `json:"boot"`
	Active      bool   `json:"active"`
	InitiatorID *int64 `json:"initiator_id"`
}

func targetsPost(d *Daemon, r *http.Request) response.Response {
	var req targetRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	if req.Name == "" {
		return badRequest("'name' is required")
	}

	t := &db.Target{Name: req.Name, Boot: req.Boot, Active: req.Active, InitiatorID: req.InitiatorID}

	id, err := d.Store.CreateTarget(t)
	if err != nil {
		return response.FromError(err)
	}

	t.ID = id

	return response.Created(t)
}

func targetGet(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	t, err := d.Store.GetTarget(id)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(t)
}

func targetPut(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	t, err := d.Store.GetTarget(id)
	if err != nil {
		return response.FromError(err)
	}

	var req targetRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	t.Name = req.Name
	t.Boot = req.Boot
	t.Active = req.Active
	t.InitiatorID = req.InitiatorID

	if err := d.Store.UpdateTarget(t); err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(t)
}

// targetDelete implements TargetViewSet.destroy (spec.md §4.5.5).
func targetDelete(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	if err := d.Core.DestroyTarget(r.Context(), id); err != nil {
		return response.FromError(err)
	}

	return response.NoContent()
}

// targetGetBootDiskInfo implements the GET /targets/{id}/get_boot_disk_info
// action (spec.md §4.5.3, §6); BootResult already carries the
// {result,lun,iqn,message} shape the wire format names.
func targetGetBootDiskInfo(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	result, err := d.Core.GetBootDiskInfo(r.Context(), id)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(result)
}

// targetGetMapDiskInfo implements the GET /targets/{id}/get_map_disk_info
// action (spec.md §4.5.4, §6).
func targetGetMapDiskInfo(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	result, err := d.Core.GetMapDiskInfo(r.Context(), id)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(result)
}
