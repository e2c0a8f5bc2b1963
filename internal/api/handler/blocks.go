package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/paritytech/polkadot-rest-api-sub000/internal/gateway"
	"github.com/paritytech/polkadot-rest-api-sub000/pkg/transform"
)

// HandleBlockHead returns the latest finalized block in decoded form.
func (h *Handler) HandleBlockHead(w http.ResponseWriter, r *http.Request) {
	block, err := h.Gateway.HeadBlock(r.Context())
	if err != nil {
		h.blockError(w, err, "head")
		return
	}
	h.writeJSON(w, http.StatusOK, block)
}

// HandleBlockByHeight returns the block at the requested height.
func (h *Handler) HandleBlockByHeight(w http.ResponseWriter, r *http.Request) {
	height, ok := h.heightVar(w, r)
	if !ok {
		return
	}
	block, err := h.Gateway.BlockByHeight(r.Context(), height)
	if err != nil {
		h.blockError(w, err, mux.Vars(r)["height"])
		return
	}
	h.writeJSON(w, http.StatusOK, block)
}

// blockEventsResponse is the /blocks/{height}/events payload.
type blockEventsResponse struct {
	Number       string                       `json:"number"`
	Hash         string                       `json:"hash"`
	OnInitialize []transform.Event            `json:"onInitialize"`
	PerExtrinsic [][]transform.Event          `json:"perExtrinsic"`
	OnFinalize   []transform.Event            `json:"onFinalize"`
	Outcomes     []transform.ExtrinsicOutcome `json:"outcomes"`
}

// HandleBlockEvents returns the categorized events of a block without
// decoding its extrinsic arguments.
func (h *Handler) HandleBlockEvents(w http.ResponseWriter, r *http.Request) {
	height, ok := h.heightVar(w, r)
	if !ok {
		return
	}
	header, events, err := h.Gateway.EventsByHeight(r.Context(), height)
	if err != nil {
		h.blockError(w, err, mux.Vars(r)["height"])
		return
	}

	resp := blockEventsResponse{
		Number:       strconv.FormatUint(header.Number, 10),
		Hash:         header.Hash,
		OnInitialize: transform.EventsFromRecords(events.OnInitialize),
		OnFinalize:   transform.EventsFromRecords(events.OnFinalize),
		PerExtrinsic: make([][]transform.Event, 0, len(events.PerExtrinsic)),
		Outcomes:     events.Outcomes,
	}
	for _, records := range events.PerExtrinsic {
		resp.PerExtrinsic = append(resp.PerExtrinsic, transform.EventsFromRecords(records))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleExtrinsic returns one decoded extrinsic of a block.
func (h *Handler) HandleExtrinsic(w http.ResponseWriter, r *http.Request) {
	height, ok := h.heightVar(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid extrinsic index")
		return
	}

	xt, err := h.Gateway.ExtrinsicByIndex(r.Context(), height, index)
	if err != nil {
		h.blockError(w, err, mux.Vars(r)["height"])
		return
	}
	h.writeJSON(w, http.StatusOK, xt)
}

// HandleRuntimeVersion returns the runtime version at the finalized head.
func (h *Handler) HandleRuntimeVersion(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Gateway.RuntimeVersionAtHead(r.Context())
	if err != nil {
		h.Logger.Error("runtime version lookup failed", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "node unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, rv)
}

func (h *Handler) heightVar(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid block height")
		return 0, false
	}
	return height, true
}

// blockError maps gateway failures onto HTTP statuses: missing resources to
// 404, decode failures to 422, everything else to 502.
func (h *Handler) blockError(w http.ResponseWriter, err error, at string) {
	switch {
	case gateway.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, "not found")
	case gateway.IsDecodeError(err):
		h.Logger.Warn("block decode failed", zap.String("block", at), zap.Error(err))
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.Logger.Error("block fetch failed", zap.String("block", at), zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "node unavailable")
	}
}
