package api

import (
	"net/http"

	"github.com/nls90/bootd/internal/api/response"
	"github.com/nls90/bootd/internal/db"
)

var pdusCmd = APIEndpoint{
	Name: "pdus",
	Path: "pdus",
	Get:  APIEndpointAction{Handler: pdusGet},
	Post: APIEndpointAction{Handler: pdusPost},
}

var pduCmd = APIEndpoint{
	Name:   "pdu",
	Path:   "pdus/{id}",
	Get:    APIEndpointAction{Handler: pduGet},
	Put:    APIEndpointAction{Handler: pduPut},
	Delete: APIEndpointAction{Handler: pduDelete},
}

func pdusGet(d *Daemon, r *http.Request) response.Response {
	pdus, err := d.Store.ListPDUs()
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(pdus)
}

type pduRequest struct {
	Name         string `json:"name"`
	IPAddress    string `json:"ip_address"`
	MACAddress   string `json:"mac_address"`
	TotalOutlets int    `json:"total_outlets"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

func pdusPost(d *Daemon, r *http.Request) response.Response {
	var req pduRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	if req.Name == "" || req.IPAddress == "" {
		return badRequest("'name' & 'ip_address' fields are required")
	}

	p := &db.PDU{
		Name: req.Name, IPAddress: req.IPAddress, MACAddress: req.MACAddress, TotalOutlets: req.TotalOutlets,
		Model: req.Model, Serial: req.Serial, Username: req.Username, Password: req.Password,
	}

	id, err := d.Store.CreatePDU(p)
	if err != nil {
		return response.FromError(err)
	}

	p.ID = id

	return response.Created(p)
}

func pduGet(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	p, err := d.Store.GetPDU(id)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(p)
}

func pduPut(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	p, err := d.Store.GetPDU(id)
	if err != nil {
		return response.FromError(err)
	}

	var req pduRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	p.Name = req.Name
	p.IPAddress = req.IPAddress
	p.MACAddress = req.MACAddress
	p.TotalOutlets = req.TotalOutlets
	p.Model = req.Model
	p.Serial = req.Serial
	p.Username = req.Username
	p.Password = req.Password

	if err := d.Store.UpdatePDU(p); err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(p)
}

func pduDelete(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	if err := d.Store.DeletePDU(id); err != nil {
		return response.FromError(err)
	}

	return response.NoContent()
}
