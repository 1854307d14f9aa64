package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kastent/kastentd/internal/kaspad"
	"github.com/kastent/kastentd/internal/tent"
	"github.com/kastent/kastentd/internal/verify"
)

func (a *API) handleCreateTent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Initiator    string            `json:"initiator"`
		Counterparty string            `json:"counterparty"`
		AssetRef     string            `json:"assetRef"`
		Price        float64           `json:"price"`
		Metadata     map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	t, err := a.tents.Create(r.Context(), tent.CreateParams{
		Initiator:    req.Initiator,
		Counterparty: req.Counterparty,
		AssetRef:     req.AssetRef,
		Price:        req.Price,
		Metadata:     req.Metadata,
	})
	if err != nil {
		a.writeTentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(t)
}

func (a *API) handleJoinTent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Counterparty string `json:"counterparty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	t, err := a.tents.Join(r.Context(), mux.Vars(r)["id"], req.Counterparty)
	if err != nil {
		a.writeTentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (a *API) handleUpdateTent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status   string            `json:"status"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	t, err := a.tents.Update(r.Context(), mux.Vars(r)["id"], req.Status, req.Metadata)
	if err != nil {
		a.writeTentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (a *API) handleGetTent(w http.ResponseWriter, r *http.Request) {
	t, err := a.tents.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeTentError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (a *API) handleListTents(w http.ResponseWriter, r *http.Request) {
	tents, err := a.tents.List(r.Context())
	if err != nil {
		a.writeTentError(w, err)
		return
	}
	if tents == nil {
		tents = []*tent.Tent{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tents)
}

func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address   string `json:"address"`
		Signature string `json:"signature"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := a.verifier.Verify(r.Context(), req.Address, req.Signature, req.Message)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "verified"})
	case errors.Is(err, verify.ErrMissingFields):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, verify.ErrInvalidAddress), errors.Is(err, verify.ErrSignatureInvalid):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		var rpcErr *kaspad.RPCError
		if errors.As(err, &rpcErr) {
			http.Error(w, "kaspa node unavailable", http.StatusBadGateway)
			return
		}
		http.Error(w, "verification failed", http.StatusInternalServerError)
	}
}

type healthResponse struct {
	Status          string `json:"status"`
	RPC             bool   `json:"rpc"`
	Source          string `json:"source"`
	NetworkName     string `json:"networkName,omitempty"`
	BlockCount      uint64 `json:"blockCount,omitempty"`
	HeaderCount     uint64 `json:"headerCount,omitempty"`
	VirtualDaaScore uint64 `json:"virtualDaaScore,omitempty"`
}

// handleHealth never fails the caller: RPC first, REST summary second, and
// a bare degraded body when both are unreachable.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", RPC: true, Source: "rpc"}

	info, err := a.ledger.GetBlockDAGInfo(r.Context())
	if err != nil {
		log.Printf("health: rpc unreachable, trying REST: %v", err)
		resp.Status = "degraded"
		resp.RPC = false
		resp.Source = "rest"
		info, err = a.ledger.RestDAGInfo(r.Context())
		if err != nil {
			log.Printf("health: REST fallback failed: %v", err)
			resp.Source = "none"
			info = nil
		}
	}
	if info != nil {
		resp.NetworkName = info.NetworkName
		resp.BlockCount = info.BlockCount
		resp.HeaderCount = info.HeaderCount
		resp.VirtualDaaScore = info.VirtualDaaScore
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (a *API) writeTentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tent.ErrNotFound):
		http.Error(w, "tent not found", http.StatusNotFound)
	case errors.Is(err, tent.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("api: tent operation failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
