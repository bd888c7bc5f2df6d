package handlers

import (
	"net/http"
	"time"

	"github.com/JPJPKIMJP/AMLWD/internal/transport/http/dto"
	httperrors "github.com/JPJPKIMJP/AMLWD/internal/transport/http/errors"
)

type HealthHandler struct {
	version    string
	features   dto.HealthFeatures
	configured func() bool
	now        func() time.Time
}

func NewHealthHandler(version string, features dto.HealthFeatures, configured func() bool) *HealthHandler {
	if configured == nil {
		configured = func() bool { return false }
	}
	return &HealthHandler{
		version:    version,
		features:   features,
		configured: configured,
		now:        time.Now,
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, dto.HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC(),
		Version:   h.version,
		Features:  h.features,
		Inference: dto.HealthInference{Configured: h.configured()},
	})
}
