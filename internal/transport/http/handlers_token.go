package httptransport

import (
	"net/http"

	"wrapregistry/pkg/platform/httputil"
)

// handleTokenMetadata returns the fixed token constants.
func (h *Handler) handleTokenMetadata(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.registry.Metadata())
}

// The transfer-shaped endpoints never read their bodies. Wraps are
// soulbound, so no input could change the answer.

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, h.registry.Transfer(r.Context(), "", "", 0))
}

func (h *Handler) handleTransferFrom(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, h.registry.TransferFrom(r.Context(), "", "", "", 0))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, h.registry.Approve(r.Context(), "", "", 0))
}

func (h *Handler) handleBurn(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, h.registry.Burn(r.Context(), "", 0))
}
