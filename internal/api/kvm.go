package api

import (
	"net/http"

	"github.com/nls90/bootd/internal/api/response"
	"github.com/nls90/bootd/internal/db"
)

var kvmsCmd = APIEndpoint{
	Name: "kvms",
	Path: "kvms",
	Get:  APIEndpointAction{Handler: kvmsGet},
	Post: APIEndpointAction{Handler: kvmsPost},
}

var kvmCmd = APIEndpoint{
	Name:   "kvm",
	Path:   "kvms/{id}",
	Get:    APIEndpointAction{Handler: kvmGet},
	Put:    APIEndpointAction{Handler: kvmPut},
	Delete: APIEndpointAction{Handler: kvmDelete},
}

func kvmsGet(d *Daemon, r *http.Request) response.Response {
	kvms, err := d.Store.ListKVMs()
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(kvms)
}

type kvmRequest struct {
	Name       string `json:"name"`
	IPAddress  string `json:"ip_address"`
	MACAddress string `json:"mac_address"`
	TotalPorts int    `json:"total_ports"`
	Model      string `json:"model"`
	Serial     string `json:"serial"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

func kvmsPost(d *Daemon, r *http.Request) response.Response {
	var req kvmRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	if req.Name == "" || req.IPAddress == "" {
		return badRequest("'name' & 'ip_address' fields are required")
	}

	k := &db.KVM{
		Name: req.Name, IPAddress: req.IPAddress, MACAddress: req.MACAddress, TotalPorts: req.TotalPorts,
		Model: req.Model, Serial: req.Serial, Username: req.Username, Password: req.Password,
	}

	id, err := d.Store.CreateKVM(k)
	if err != nil {
		return response.FromError(err)
	}

	k.ID = id

	return response.Created(k)
}

func kvmGet(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	k, err := d.Store.GetKVM(id)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(k)
}

func kvmPut(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	k, err := d.Store.GetKVM(id)
	if err != nil {
		return response.FromError(err)
	}

	var req kvmRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	k.Name = req.Name
	k.IPAddress = req.IPAddress
	k.MACAddress = req.MACAddress
	k.TotalPorts = req.TotalPorts
	k.Model = req.Model
	k.Serial = req.Serial
	k.Username = req.Username
	k.Password = req.Password

	if err := d.Store.UpdateKVM(k); err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(k)
}

func kvmDelete(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	if err := d.Store.DeleteKVM(id); err != nil {
		return response.FromError(err)
	}

	return response.NoContent()
}
