package api

import (
	"net/http"

	"github.com/nls90/bootd/internal/api/response"
	"github.com/nls90/bootd/internal/db"
)

var logicalUnitsCmd = APIEndpoint{
	Name: "logical_units",
	Path: "logical_units",
	Get:  APIEndpointAction{Handler: logicalUnitsGet},
	Post: APIEndpointAction{Handler: logicalUnitsPost},
}

var logicalUnitCmd = APIEndpoint{
	Name:   "logical_unit",
	Path:   "logical_units/{id}",
	Get:    APIEndpointAction{Handler: logicalUnitGet},
	Put:    APIEndpointAction{Handler: logicalUnitPut},
	Delete: APIEndpointAction{Handler: logicalUnitDelete},
}

var logicalUnitMountDevicePathCmd = APIEndpoint{
	Name: "logical_unit_get_mount_device_path",
	Path: "logical_units/{id}/get_mount_device_path",
	Get:  APIEndpointAction{Handler: logicalUnitGetMountDevicePath},
}

var logicalUnitRecreateCmd = APIEndpoint{
	Name:  "logical_unit_recreate",
	Path:  "logical_units/{id}/recreate",
	Patch: APIEndpointAction{Handler: logicalUnitRecreate},
}

var logicalUnitRevertCmd = APIEndpoint{
	Name:  "logical_unit_revert",
	Path:  "logical_units/{id}/revert",
	Patch: APIEndpointAction{Handler: logicalUnitRevert},
}

var logicalUnitDumpCmd = APIEndpoint{
	Name:  "logical_unit_dump",
	Path:  "logical_units/{id}/dump",
	Patch: APIEndpointAction{Handler: logicalUnitDump},
}

var logicalUnitRestoreCmd = APIEndpoint{
	Name:  "logical_unit_restore",
	Path:  "logical_units/{id}/restore",
	Patch: APIEndpointAction{Handler: logicalUnitRestore},
}

// logicalUnitsGet implements LogicalUnitViewSet.get_queryset: list,
// optionally filtered by ?status=.
func logicalUnitsGet(d *Daemon, r *http.Request) response.Response {
	var statusFilter *db.LogicalUnitStatus

	if literal := r.URL.Query().Get("status"); literal != "" {
		status, ok := db.ParseLogicalUnitStatus(literal)
		if !ok {
			return badRequest("unknown status %q", literal)
		}

		statusFilter = &status
	}

	units, err := d.Store.ListLogicalUnits(nil, statusFilter)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(units)
}

type logicalUnitRequest struct {
	Name       string  `json:"name"`
	Group      string  `json:"group"`
	VendorID   string  `json:"vendor_id"`
	ProductID  string  `json:"product_id"`
	ProductRev string  `json:"product_rev"`
	SizeInGB   float64 `json:"size_in_gb"`
	Use        bool    `json:"use"`
	BootCount  int     `json:"boot_count"`
	TargetID   *int64  `json:"target"`
}

// logicalUnitsPost implements LogicalUnitViewSet.create: 'name' and
// 'group' are required, matching the original's field validation.
func logicalUnitsPost(d *Daemon, r *http.Request) response.Response {
	var req logicalUnitRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	if req.Name == "" || req.Group == "" {
		return badRequest("'name' & 'group' fields are required and should have valid data")
	}

	l := &db.LogicalUnit{
		Name: req.Name, Group: req.Group, VendorID: req.VendorID, ProductID: req.ProductID,
		ProductRev: req.ProductRev, SizeInGB: req.SizeInGB, Use: req.Use, BootCount: req.BootCount,
		TargetID: req.TargetID,
	}

	id, err := d.Core.CreateLogicalUnit(r.Context(), l)
	if err != nil {
		return response.FromError(err)
	}

	l.ID = id

	return response.Created(l)
}

func logicalUnitGet(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	l, err := d.Store.GetLogicalUnit(id)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(l)
}

func logicalUnitPut(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	l, err := d.Store.GetLogicalUnit(id)
	if err != nil {
		return response.FromError(err)
	}

	var req logicalUnitRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	l.Name = req.Name
	l.Group = req.Group
	l.VendorID = req.VendorID
	l.ProductID = req.ProductID
	l.ProductRev = req.ProductRev
	l.Use = req.Use
	l.BootCount = req.BootCount
	l.TargetID = req.TargetID

	if err := d.Store.UpdateLogicalUnit(l); err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(l)
}

// logicalUnitDelete implements LogicalUnitViewSet.destroy.
func logicalUnitDelete(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	if err := d.Core.DeleteLogicalUnit(r.Context(), id); err != nil {
		return response.FromError(err)
	}

	return response.NoContent()
}

// logicalUnitGetMountDevicePath implements the get_mount_device_path
// action (spec.md §6): {result, device_path}.
func logicalUnitGetMountDevicePath(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	path, found, err := d.Core.GetMountDevicePath(r.Context(), id)
	if err != nil {
		return response.FromError(err)
	}

	if !found {
		return response.SyncResponse(map[string]any{"result": false, "device_path": nil, "message": "No device found"})
	}

	return response.SyncResponse(map[string]any{"result": true, "device_path": path})
}

// logicalUnitRecreate implements LogicalUnitViewSet.recreate: text body,
// 200 on success.
func logicalUnitRecreate(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	if err := d.Core.Recreate(r.Context(), id); err != nil {
		return response.FromError(err)
	}

	return response.Text(http.StatusOK, "Created...")
}

type revertRequest struct {
	Snapshot string `json:"snapshot"`
}

// logicalUnitRevert implements LogicalUnitViewSet.revert: {result,
// message} at HTTP 200 for a completed or refused revert; errors returned
// by the Core are rendered through response.FromError.
func logicalUnitRevert(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	var req revertRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	ok, message, err := d.Core.Revert(r.Context(), id, req.Snapshot)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(map[string]any{"result": ok, "message": message})
}

type localFileRequest struct {
	LocalFile string `json:"local_file"`
}

// logicalUnitDump implements LogicalUnitViewSet.dump: text, 200 or 417.
func logicalUnitDump(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	var req localFileRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	if req.LocalFile == "" {
		return response.Text(http.StatusBadRequest, "No valid 'local_file' key found")
	}

	output, err := d.Core.Dump(r.Context(), id, req.LocalFile)
	if err != nil {
		return response.ExpectationFailed("Failed to dump the disk. Details: " + err.Error())
	}

	return response.Text(http.StatusOK, "Successfully dumped the disk. Details: "+output)
}

// logicalUnitRestore implements LogicalUnitViewSet.restore: the inverse of dump.
func logicalUnitRestore(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	var req localFileRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	if req.LocalFile == "" {
		return response.Text(http.StatusBadRequest, "No valid 'local_file' key found")
	}

	output, err := d.Core.Restore(r.Context(), id, req.LocalFile)
	if err != nil {
		return response.ExpectationFailed("Failed to restore the disk. Details: " + err.Error())
	}

	return response.Text(http.StatusOK, "Successfully restored the disk. Details: "+output)
}
