package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	generationsvc "github.com/JPJPKIMJP/AMLWD/internal/services/generation"
	"github.com/JPJPKIMJP/AMLWD/internal/services/validation"
	"github.com/JPJPKIMJP/AMLWD/internal/transport/http/dto"
	httperrors "github.com/JPJPKIMJP/AMLWD/internal/transport/http/errors"
)

// Init images are capped at 10 MiB decoded; base64 and the other fields
// fit under this.
const maxGenerateBodySize = 16 << 20

type GenerateHandler struct {
	service *generationsvc.Service
}

func NewGenerateHandler(service *generationsvc.Service) *GenerateHandler {
	return &GenerateHandler{service: service}
}

func (h *GenerateHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "Image generation service is unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxGenerateBodySize)
	var raw validation.RawParams
	if err := decodeJSON(r, &raw); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	res, err := h.service.Generate(r.Context(), requesterFromRequest(r), raw)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, mapGenerateResult(res))
}

func mapGenerateResult(res model.GenerationResult) dto.GenerateResponse {
	out := dto.GenerateResponse{
		Success:          true,
		AttemptID:        res.AttemptID.String(),
		Seed:             res.Seed,
		ProcessingTimeMS: res.ProcessingTime.Milliseconds(),
	}
	if len(res.Images) > 1 {
		out.Images = make([]string, 0, len(res.Images))
		for _, img := range res.Images {
			out.Images = append(out.Images, base64.StdEncoding.EncodeToString(img))
		}
		return out
	}
	if len(res.Images) == 1 {
		out.Image = base64.StdEncoding.EncodeToString(res.Images[0])
	}
	return out
}
