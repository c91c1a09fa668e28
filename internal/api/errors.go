package api

import (
	"errors"
	"net/http"

	"casedesk/internal/apiclient"
	"casedesk/internal/gate"
	"casedesk/internal/middleware"
	"casedesk/internal/ops"
	"casedesk/internal/rating"
	"casedesk/internal/util"
)

const genericUpstreamMessage = "Network error occurred, please try again"

// writeOpError maps the client error taxonomy onto responses: validation
// 400, auth 401, domain errors keep the upstream status, network 502.
func writeOpError(w http.ResponseWriter, r *http.Request, err error) {
	rid := middleware.RequestID(r.Context())
	switch {
	case errors.Is(err, ops.ErrValidation):
		util.WriteError(w, http.StatusBadRequest, "validation_failed", ops.Reason(err), rid)
		return
	case errors.Is(err, rating.ErrMissingScore):
		util.WriteError(w, http.StatusBadRequest, "missing_score", err.Error(), rid)
		return
	case errors.Is(err, rating.ErrOutOfScale):
		util.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error(), rid)
		return
	case errors.Is(err, rating.ErrInFlight):
		util.WriteError(w, http.StatusConflict, "in_flight", err.Error(), rid)
		return
	case errors.Is(err, ops.ErrInvalidCredentials):
		util.WriteError(w, http.StatusUnauthorized, "invalid_credentials", apiclient.Message(err, "Invalid credentials"), rid)
		return
	case errors.Is(err, rating.ErrUnauthenticated), errors.Is(err, ops.ErrNotSignedIn):
		util.WriteRedirect(w, http.StatusUnauthorized, "unauthorized", "authentication required", gate.RouteLogin, rid)
		return
	case errors.Is(err, ops.ErrIdentityChanged):
		util.WriteError(w, http.StatusConflict, "identity_changed", err.Error(), rid)
		return
	case errors.Is(err, ops.ErrScaleMismatch):
		util.WriteError(w, http.StatusBadGateway, "scale_mismatch", err.Error(), rid)
		return
	}
	switch apiclient.Classify(err) {
	case apiclient.KindAuth:
		util.WriteRedirect(w, http.StatusUnauthorized, "session_expired", apiclient.Message(err, "Session expired, please sign in again"), gate.RouteLogin, rid)
	case apiclient.KindDomain:
		util.WriteError(w, apiclient.Status(err), "upstream_rejected", apiclient.Message(err, "Request was rejected"), rid)
	default:
		util.WriteError(w, http.StatusBadGateway, "upstream_unavailable", genericUpstreamMessage, rid)
	}
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	util.WriteError(w, http.StatusBadRequest, "bad_request", msg, middleware.RequestID(r.Context()))
}
