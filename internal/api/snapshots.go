package api

import (
	"net/http"

	"github.com/nls90/bootd/internal/api/response"
	"github.com/nls90/bootd/internal/db"
)

var snapshotsCmd = APIEndpoint{
	Name: "snapshots",
	Path: "snapshots",
	Get:  APIEndpointAction{Handler: snapshotsGet},
	Post: APIEndpointAction{Handler: snapshotsPost},
}

var snapshotCmd = APIEndpoint{
	Name:   "snapshot",
	Path:   "snapshots/{id}",
	Get:    APIEndpointAction{Handler: snapshotGet},
	Delete: APIEndpointAction{Handler: snapshotDelete},
}

func snapshotsGet(d *Daemon, r *http.Request) response.Response {
	logicalUnitID, err := idFromQuery(r, "logical_unit")
	if err != nil {
		return badRequest("%v", err)
	}

	if logicalUnitID == 0 {
		return badRequest("'logical_unit' query parameter is required")
	}

	snapshots, err := d.Store.ListSnapshotsForLogicalUnit(logicalUnitID)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(snapshots)
}

type snapshotRequest struct {
	Name          string  `json:"name"`
	LogicalUnitID int64   `json:"logical_unit"`
	SizeInGB      float64 `json:"size_in_gb"`
	Description   string  `json:"description"`
	Active        bool    `json:"active"`
}

// snapshotsPost implements SnapshotViewSet.create: 'name' and
// 'logical_unit' are required, and the owning LU must be OFFLINE.
func snapshotsPost(d *Daemon, r *http.Request) response.Response {
	var req snapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	if req.Name == "" || req.LogicalUnitID == 0 {
		return badRequest("'name' & 'logical_unit' fields are required and should have valid data")
	}

	sn := &db.Snapshot{
		Name: req.Name, LogicalUnitID: req.LogicalUnitID, SizeInGB: req.SizeInGB, Description: req.Description,
	}

	id, err := d.Core.CreateSnapshot(r.Context(), sn)
	if err != nil {
		return response.FromError(err)
	}

	sn.ID = id

	if req.Active {
		if err := d.Core.ActivateSnapshot(sn); err != nil {
			return response.FromError(err)
		}
	}

	return response.Created(sn)
}

func snapshotGet(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	sn, err := d.Store.GetSnapshot(id)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(sn)
}

// snapshotDelete implements SnapshotViewSet.destroy.
func snapshotDelete(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	if err := d.Core.DeleteSnapshot(r.Context(), id); err != nil {
		return response.FromError(err)
	}

	return response.NoContent()
}
