package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wrapregistry/internal/platform/middleware"
	id "wrapregistry/pkg/domain"
	dErrors "wrapregistry/pkg/domain-errors"
	"wrapregistry/pkg/platform/httputil"
)

// handleMint submits one wrap. The caller identity, when a bearer token
// was presented, rides along for the capability gate; signature-mode
// submitters usually arrive anonymous.
func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var mintReq MintRequest
	if err := json.NewDecoder(r.Body).Decode(&mintReq); err != nil {
		h.logger.WarnContext(ctx, "invalid mint request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	req, err := mintReq.Parse()
	if err != nil {
		h.logger.WarnContext(ctx, "invalid mint request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	req.Caller = id.AccountID(middleware.GetCaller(ctx))

	h.logger.InfoContext(ctx, "mint submitted",
		"request_id", requestID,
		"user", req.User,
		"period", req.Period,
		"archetype", req.Archetype,
		"signed", len(req.Signature) > 0,
		"submitter", ParseUserAgent(r.UserAgent()),
	)

	record, err := h.registry.Mint(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to mint wrap",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, newWrapResponse(record))
}

// handleGetWrap loads one record by its (user, period) identity.
func (h *Handler) handleGetWrap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := id.ParseAccountID(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	period, err := parsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.registry.GetWrap(ctx, user, period)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to load wrap record",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newWrapResponse(record))
}

// handleBalance is the token-facade balance query, zero for unknown
// users.
func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := id.ParseAccountID(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	balance, err := h.registry.BalanceOf(ctx, user)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load balance",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{User: user.String(), Balance: balance})
}

// handleWrapCount reports the per-user mint counter.
func (h *Handler) handleWrapCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := id.ParseAccountID(chi.URLParam(r, "user"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	count, err := h.registry.WrapCount(ctx, user)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load wrap count",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CountResponse{User: user.String(), Count: count})
}

func parsePeriod(raw string) (uint64, error) {
	period, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "period must be a positive integer")
	}
	return period, nil
}
