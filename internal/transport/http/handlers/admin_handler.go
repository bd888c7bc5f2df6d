package handlers

import (
	"net/http"

	"github.com/JPJPKIMJP/AMLWD/internal/config"
	"github.com/JPJPKIMJP/AMLWD/internal/domain/enums"
	accesssvc "github.com/JPJPKIMJP/AMLWD/internal/services/access"
	costssvc "github.com/JPJPKIMJP/AMLWD/internal/services/costs"
	userssvc "github.com/JPJPKIMJP/AMLWD/internal/services/users"
	"github.com/JPJPKIMJP/AMLWD/internal/transport/http/dto"
	httperrors "github.com/JPJPKIMJP/AMLWD/internal/transport/http/errors"
)

type AdminHandler struct {
	users    *userssvc.Service
	costs    *costssvc.Service
	gate     *accesssvc.Gate
	costsCfg config.CostsConfig
}

func NewAdminHandler(users *userssvc.Service, costs *costssvc.Service, gate *accesssvc.Gate, costsCfg config.CostsConfig) *AdminHandler {
	return &AdminHandler{
		users:    users,
		costs:    costs,
		gate:     gate,
		costsCfg: costsCfg,
	}
}

func (h *AdminHandler) ManageUser(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		writeUnavailable(w, "User management is unavailable")
		return
	}

	var req dto.ManageUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	res, err := h.users.Manage(r.Context(), requesterFromRequest(r), userssvc.ManageInput{
		UserID:        req.UserID,
		Action:        enums.ManageAction(req.Action),
		Reason:        req.Reason,
		DurationHours: req.Duration,
	})
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ManageUserResponse{
		Success:        true,
		Action:         string(res.Action),
		UserID:         res.UserID,
		SuspendedUntil: res.SuspendedUntil,
	})
}

func (h *AdminHandler) SetPremium(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		writeUnavailable(w, "User management is unavailable")
		return
	}

	var req dto.SetPremiumRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := h.users.SetPremium(r.Context(), requesterFromRequest(r), req.UserID, req.Premium); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, map[string]any{"success": true, "user_id": req.UserID, "premium": req.Premium})
}

func (h *AdminHandler) Costs(w http.ResponseWriter, r *http.Request) {
	if h.costs == nil || h.gate == nil {
		writeUnavailable(w, "Cost monitoring is unavailable")
		return
	}
	if err := h.gate.RequireAdmin(r.Context(), requesterFromRequest(r)); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	snap, err := h.costs.Snapshot(r.Context())
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CostsResponse{
		DailyImages:     snap.DailyImages,
		MonthlyImages:   snap.MonthlyImages,
		DailyCost:       snap.DailyCost,
		MonthlyCost:     snap.MonthlyCost,
		CostPerImage:    h.costsCfg.PerImage,
		DailyAlertUSD:   h.costsCfg.DailyAlertUSD,
		MonthlyAlertUSD: h.costsCfg.MonthlyAlertUSD,
		ComputedAt:      snap.ComputedAt,
	})
}
