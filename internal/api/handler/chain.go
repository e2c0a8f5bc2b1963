package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	adminmodels "github.com/paritytech/polkadot-rest-api-sub000/pkg/db/models/admin"
	"github.com/paritytech/polkadot-rest-api-sub000/pkg/rpc"
)

// HandleChainsList returns all registered chains
// Query param: ?deleted=true to include soft-deleted chains
func (h *Handler) HandleChainsList(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("deleted") == "true"

	chains, err := h.AdminDB.ListChain(r.Context(), includeDeleted)
	if err != nil {
		h.Logger.Error("failed to list chains", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if chains == nil {
		chains = make([]adminmodels.Chain, 0)
	}

	h.writeJSON(w, http.StatusOK, chains)
}

// HandleChainsUpsert creates or updates a chain
func (h *Handler) HandleChainsUpsert(w http.ResponseWriter, r *http.Request) {
	var chain adminmodels.Chain
	if err := json.NewDecoder(r.Body).Decode(&chain); err != nil {
		h.Logger.Warn("bad json in chain upsert request", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	if chain.ChainID == 0 {
		h.writeError(w, http.StatusBadRequest, "chain_id must be provided")
		return
	}
	if len(chain.RPCEndpoints) == 0 {
		h.writeError(w, http.StatusBadRequest, "rpc_endpoints must be provided")
		return
	}

	// Probe the endpoints so dead nodes are rejected at registration time.
	name, err := probeEndpoints(r.Context(), chain.RPCEndpoints)
	if err != nil {
		h.Logger.Warn("failed to validate RPC endpoints",
			zap.Error(err),
			zap.Strings("endpoints", chain.RPCEndpoints),
		)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to validate RPC endpoints: %v", err))
		return
	}

	if chain.ChainName == "" {
		chain.ChainName = name
	}
	if chain.SS58Prefix < -1 || chain.SS58Prefix > 16383 {
		h.writeError(w, http.StatusBadRequest, "ss58_prefix out of range")
		return
	}

	if err := h.AdminDB.InsertChain(r.Context(), &chain); err != nil {
		h.Logger.Error("failed to insert/update chain", zap.Error(err), zap.Uint64("chain_id", chain.ChainID))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Logger.Info("chain upserted successfully", zap.Uint64("chain_id", chain.ChainID), zap.String("chain_name", chain.ChainName))

	h.writeJSON(w, http.StatusOK, chain)
}

// HandleChainDetail returns a specific chain by ID
func (h *Handler) HandleChainDetail(w http.ResponseWriter, r *http.Request) {
	chainID, ok := h.chainIDVar(w, r)
	if !ok {
		return
	}

	chain, err := h.AdminDB.GetChain(r.Context(), chainID)
	if err != nil {
		h.Logger.Warn("chain not found", zap.Uint64("chain_id", chainID), zap.Error(err))
		h.writeError(w, http.StatusNotFound, "not found")
		return
	}

	h.writeJSON(w, http.StatusOK, chain)
}

// HandleChainPatch updates specific fields of a chain
func (h *Handler) HandleChainPatch(w http.ResponseWriter, r *http.Request) {
	chainID, ok := h.chainIDVar(w, r)
	if !ok {
		return
	}

	cur, err := h.AdminDB.GetChain(r.Context(), chainID)
	if err != nil {
		h.Logger.Warn("chain not found for patch", zap.Uint64("chain_id", chainID), zap.Error(err))
		h.writeError(w, http.StatusNotFound, "not found")
		return
	}

	var patch adminmodels.Chain
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.Logger.Warn("bad json in chain patch request", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	if patch.ChainName != "" {
		cur.ChainName = strings.TrimSpace(patch.ChainName)
	}
	if patch.Notes != "" {
		cur.Notes = strings.TrimSpace(patch.Notes)
	}
	if patch.WSEndpoint != "" {
		cur.WSEndpoint = strings.TrimSpace(patch.WSEndpoint)
	}
	if patch.SS58Prefix != 0 {
		if patch.SS58Prefix < -1 || patch.SS58Prefix > 16383 {
			h.writeError(w, http.StatusBadRequest, "ss58_prefix out of range")
			return
		}
		cur.SS58Prefix = patch.SS58Prefix
	}

	if patch.RPCEndpoints != nil {
		cleaned := dedupTrimmed(patch.RPCEndpoints)
		if len(cleaned) > 0 {
			if _, err := probeEndpoints(r.Context(), cleaned); err != nil {
				h.Logger.Warn("failed to validate RPC endpoints in patch",
					zap.Error(err),
					zap.Uint64("chain_id", chainID),
				)
				h.writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to validate RPC endpoints: %v", err))
				return
			}
		}
		cur.RPCEndpoints = cleaned
	}

	if patch.Paused != cur.Paused {
		cur.Paused = patch.Paused
	}

	if upsertErr := h.AdminDB.InsertChain(r.Context(), cur); upsertErr != nil {
		h.Logger.Error("failed to update chain", zap.Error(upsertErr), zap.Uint64("chain_id", chainID))
		h.writeError(w, http.StatusInternalServerError, upsertErr.Error())
		return
	}

	h.Logger.Info("chain patched successfully", zap.Uint64("chain_id", chainID))

	h.writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

// HandleChainDelete soft-deletes a chain; ?hard=true removes the record.
func (h *Handler) HandleChainDelete(w http.ResponseWriter, r *http.Request) {
	chainID, ok := h.chainIDVar(w, r)
	if !ok {
		return
	}

	chain, err := h.AdminDB.GetChain(r.Context(), chainID)
	if err != nil {
		h.Logger.Warn("chain not found for delete", zap.Uint64("chain_id", chainID), zap.Error(err))
		h.writeError(w, http.StatusNotFound, "chain not found")
		return
	}

	if r.URL.Query().Get("hard") == "true" {
		if err := h.AdminDB.HardDeleteChain(r.Context(), chainID); err != nil {
			h.Logger.Error("failed to hard-delete chain", zap.Error(err), zap.Uint64("chain_id", chainID))
			h.writeError(w, http.StatusInternalServerError, "failed to delete chain")
			return
		}
		if err := h.AdminDB.DeleteRedecodeRequestsForChain(r.Context(), chainID); err != nil {
			h.Logger.Warn("failed to clear redecode requests", zap.Error(err), zap.Uint64("chain_id", chainID))
		}
		h.Logger.Info("chain hard-deleted", zap.Uint64("chain_id", chainID))
		h.writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
		return
	}

	chain.Deleted = 1

	if err := h.AdminDB.InsertChain(r.Context(), chain); err != nil {
		h.Logger.Error("failed to mark chain as deleted", zap.Error(err), zap.Uint64("chain_id", chainID))
		h.writeError(w, http.StatusInternalServerError, "failed to delete chain")
		return
	}

	if err := h.AdminDB.DeleteRedecodeRequestsForChain(r.Context(), chainID); err != nil {
		h.Logger.Warn("failed to clear redecode requests", zap.Error(err), zap.Uint64("chain_id", chainID))
	}

	h.Logger.Info("chain soft-deleted successfully", zap.Uint64("chain_id", chainID))

	h.writeJSON(w, http.StatusOK, map[string]string{"ok": "1"})
}

// redecodeBody is the request body for a redecode request.
type redecodeBody struct {
	FromHeight uint64 `json:"from_height"`
	ToHeight   uint64 `json:"to_height"`
}

// HandleRedecodeCreate records a redecode request and erases the range's
// decode progress so the backfiller re-decodes it.
func (h *Handler) HandleRedecodeCreate(w http.ResponseWriter, r *http.Request) {
	chainID, ok := h.chainIDVar(w, r)
	if !ok {
		return
	}

	if _, err := h.AdminDB.GetChain(r.Context(), chainID); err != nil {
		h.writeError(w, http.StatusNotFound, "chain not found")
		return
	}

	var body redecodeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if body.FromHeight == 0 || body.ToHeight < body.FromHeight {
		h.writeError(w, http.StatusBadRequest, "from_height must be >= 1 and <= to_height")
		return
	}

	if err := h.AdminDB.InsertRedecodeRequest(r.Context(), chainID, body.FromHeight, body.ToHeight); err != nil {
		h.Logger.Error("failed to insert redecode request", zap.Error(err), zap.Uint64("chain_id", chainID))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.AdminDB.DeleteProgressRange(r.Context(), chainID, body.FromHeight, body.ToHeight); err != nil {
		h.Logger.Error("failed to reset decode progress", zap.Error(err), zap.Uint64("chain_id", chainID))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Logger.Info("redecode requested",
		zap.Uint64("chain_id", chainID),
		zap.Uint64("from_height", body.FromHeight),
		zap.Uint64("to_height", body.ToHeight),
	)

	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"chain_id":    chainID,
		"from_height": body.FromHeight,
		"to_height":   body.ToHeight,
		"status":      "pending",
	})
}

// HandleRedecodeList returns a chain's redecode requests, newest first.
func (h *Handler) HandleRedecodeList(w http.ResponseWriter, r *http.Request) {
	chainID, ok := h.chainIDVar(w, r)
	if !ok {
		return
	}

	reqs, err := h.AdminDB.ListRedecodeRequests(r.Context(), chainID)
	if err != nil {
		h.Logger.Error("failed to list redecode requests", zap.Error(err), zap.Uint64("chain_id", chainID))
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reqs == nil {
		reqs = make([]adminmodels.RedecodeRequest, 0)
	}

	h.writeJSON(w, http.StatusOK, reqs)
}

func (h *Handler) chainIDVar(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	chainID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid chain ID")
		return 0, false
	}
	return chainID, true
}

// probeEndpoints asks the given endpoints for the chain name and returns it.
// Any endpoint answering is enough; the request client falls over internally.
func probeEndpoints(ctx context.Context, endpoints []string) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := rpc.NewHTTPWithOpts(rpc.Opts{Endpoints: endpoints})
	name, err := client.ChainName(probeCtx)
	if err != nil {
		return "", err
	}
	return name, nil
}

func dedupTrimmed(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
