package httptransport

import (
	"encoding/json"
	"net/http"

	"wrapregistry/internal/platform/middleware"
	id "wrapregistry/pkg/domain"
	dErrors "wrapregistry/pkg/domain-errors"
	"wrapregistry/pkg/platform/httputil"
)

// handleInitialize creates the admin record. The operation is open to
// any caller and succeeds at most once per instance.
func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var initReq InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&initReq); err != nil {
		h.logger.WarnContext(ctx, "invalid initialize request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	admin, key, err := initReq.Parse()
	if err != nil {
		h.logger.WarnContext(ctx, "invalid initialize request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	if err := h.registry.Initialize(ctx, admin, key); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to initialize registry",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// handleUpdateAdmin rotates the admin. RequireAuth has already resolved
// the caller; the service decides whether that caller holds the
// capability.
func (h *Handler) handleUpdateAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	caller := middleware.GetCaller(ctx)
	if caller == "" {
		// This should never happen if RequireAuth middleware is configured correctly
		h.logger.ErrorContext(ctx, "caller missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var updateReq UpdateAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		h.logger.WarnContext(ctx, "invalid admin update request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	newAdmin, newKey, err := updateReq.Parse()
	if err != nil {
		h.logger.WarnContext(ctx, "invalid admin update request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	if err := h.registry.UpdateAdmin(ctx, id.AccountID(caller), newAdmin, newKey); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to rotate registry admin",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// handleGetAdmin reports the current authority, null until initialized.
func (h *Handler) handleGetAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	record, err := h.registry.Admin(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load admin record",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newAdminResponse(record))
}
