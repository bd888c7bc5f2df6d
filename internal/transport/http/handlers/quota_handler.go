package handlers

import (
	"net/http"

	accesssvc "github.com/JPJPKIMJP/AMLWD/internal/services/access"
	quotasvc "github.com/JPJPKIMJP/AMLWD/internal/services/quota"
	"github.com/JPJPKIMJP/AMLWD/internal/transport/http/dto"
	httperrors "github.com/JPJPKIMJP/AMLWD/internal/transport/http/errors"
)

type QuotaHandler struct {
	service *quotasvc.Service
	gate    *accesssvc.Gate
}

func NewQuotaHandler(service *quotasvc.Service, gate *accesssvc.Gate) *QuotaHandler {
	return &QuotaHandler{service: service, gate: gate}
}

func (h *QuotaHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.service == nil || h.gate == nil {
		writeUnavailable(w, "Quota service is unavailable")
		return
	}

	requester := requesterFromRequest(r)
	snapshot, err := h.service.Snapshot(r.Context(), requester, h.gate.IsAdmin(r.Context(), requester))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.QuotaResponse{
		Limit:             snapshot.Limit,
		Used:              snapshot.Used,
		Remaining:         snapshot.Remaining,
		Unlimited:         snapshot.Unlimited,
		ResetAt:           snapshot.ResetAt.UTC(),
		RetryAfterSeconds: snapshot.RetryAfterSeconds,
	})
}
