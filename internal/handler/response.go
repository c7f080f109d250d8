package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"portfolio-cms/internal/middleware"
	"portfolio-cms/internal/model"
	"portfolio-cms/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    apierror.CodeInternal,
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrTrashItemNotFound) {
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "Trash item not found"
	} else if errors.Is(err, model.ErrEntityNotFound) {
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "Entity not found"
	} else if errors.Is(err, model.ErrTrashItemExpired) {
		status = http.StatusGone
		body.Code = apierror.CodeExpired
		body.Message = "Trash item has expired and can no longer be restored"
	} else if errors.Is(err, model.ErrUnknownEntityType) {
		// a stored record names a type this build does not know about
		slog.Error("trash record references unknown entity type", "error", err.Error())
		body.Code = apierror.CodeUnknownEntityType
		body.Message = "Unknown entity type"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrRestoreConflict) {
		status = http.StatusConflict
		body.Code = apierror.CodeConflict
		body.Message = "Cannot restore: a live record already uses the same unique value"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrSweepInProgress) {
		status = http.StatusConflict
		body.Code = apierror.CodeConflict
		body.Message = "A trash sweep is already in progress"
	} else if errors.Is(err, model.ErrSweepRunNotFound) {
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "Sweep run not found"
	} else if errors.Is(err, model.ErrUnauthorized) {
		status = http.StatusUnauthorized
		body.Code = apierror.CodeUnauthorized
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrForbidden) {
		status = http.StatusForbidden
		body.Code = apierror.CodeForbidden
		body.Message = "Access denied"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = apierror.CodeBadRequest
		body.Message = "Invalid input"
		body.Details = strings.TrimPrefix(err.Error(), model.ErrInvalidInput.Error()+": ")
	} else {
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

// actorFromRequest attributes an audited action to the verified caller.
func actorFromRequest(r *http.Request) model.AuditActor {
	actor := model.AuditActor{IP: middleware.ClientIP(r)}

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return actor
	}

	actor.UserID = claims.UserID
	actor.Username = claims.Username

	return actor
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}
