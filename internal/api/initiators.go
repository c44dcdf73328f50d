package api

import (
	"net/http"

	"github.com/nls90/bootd/internal/api/response"
	"github.com/nls90/bootd/internal/db"
)

var initiatorsCmd = APIEndpoint{
	Name: "initiators",
	Path: "initiators",
	Get:  APIEndpointAction{Handler: initiatorsGet},
	Post: APIEndpointAction{Handler: initiatorsPost},
}

var initiatorCmd = APIEndpoint{
	Name:   "initiator",
	Path:   "initiators/{id}",
	Get:    APIEndpointAction{Handler: initiatorGet},
	Put:    APIEndpointAction{Handler: initiatorPut},
	Delete: APIEndpointAction{Handler: initiatorDelete},
}

func initiatorsGet(d *Daemon, r *http.Request) response.Response {
	initiators, err := d.Store.ListInitiators()
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(initiators)
}

type initiatorRequest struct {
	MACAddress string           `json:"mac_address"`
	Name       string           `json:"name"`
	Mode       db.InitiatorMode `json:"mode"`
	IPAddress  string           `json:"ip_address"`
	PDUID      *int64           `json:"pdu_id"`
	PDUPort    int              `json:"pdu_port"`
	KVMID      *int64           `json:"kvm_id"`
	KVMPort    int              `json:"kvm_port"`
}

func initiatorsPost(d *Daemon, r *http.Request) response.Response {
	var req initiatorRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	if req.MACAddress == "" {
		return badRequest("'mac_address' is required")
	}

	mode := req.Mode
	if mode == "" {
		mode = db.InitiatorModeAutomatic
	}

	i := &db.Initiator{
		MACAddress: req.MACAddress, Name: req.Name, Mode: mode, IPAddress: req.IPAddress,
		PDUID: req.PDUID, PDUPort: req.PDUPort, KVMID: req.KVMID, KVMPort: req.KVMPort,
	}

	id, err := d.Store.CreateInitiator(i)
	if err != nil {
		return response.FromError(err)
	}

	i.ID = id

	return response.Created(i)
}

func initiatorGet(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	i, err := d.Store.GetInitiator(id)
	if err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(i)
}

func initiatorPut(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	i, err := d.Store.GetInitiator(id)
	if err != nil {
		return response.FromError(err)
	}

	var req initiatorRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("decoding request: %v", err)
	}

	i.MACAddress = req.MACAddress
	i.Name = req.Name
	if req.Mode != "" {
		i.Mode = req.Mode
	}
	i.IPAddress = req.IPAddress
	i.PDUID = req.PDUID
	i.PDUPort = req.PDUPort
	i.KVMID = req.KVMID
	i.KVMPort = req.KVMPort

	if err := d.Store.UpdateInitiator(i); err != nil {
		return response.FromError(err)
	}

	return response.SyncResponse(i)
}

func initiatorDelete(d *Daemon, r *http.Request) response.Response {
	id, err := idFromRequest(r)
	if err != nil {
		return badRequest("%v", err)
	}

	if err := d.Store.DeleteInitiator(id); err != nil {
		return response.FromError(err)
	}

	return response.NoContent()
}
