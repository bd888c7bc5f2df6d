package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/JPJPKIMJP/AMLWD/internal/domain/model"
	imagessvc "github.com/JPJPKIMJP/AMLWD/internal/services/images"
	"github.com/JPJPKIMJP/AMLWD/internal/transport/http/dto"
	httperrors "github.com/JPJPKIMJP/AMLWD/internal/transport/http/errors"
)

const maxSaveBodySize = 32 << 20

type ImagesHandler struct {
	service *imagessvc.Service
}

func NewImagesHandler(service *imagessvc.Service) *ImagesHandler {
	return &ImagesHandler{service: service}
}

func (h *ImagesHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "Image storage is unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSaveBodySize)
	var req dto.SaveImageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	saved, err := h.service.Save(r.Context(), requesterFromRequest(r), imagessvc.SaveInput{
		ImageBase64: req.ImageBase64,
		Prompt:      req.Prompt,
		Metadata:    req.Metadata,
		AttemptID:   req.AttemptID,
	})
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SaveImageResponse{
		Success:  true,
		ID:       saved.ID.String(),
		ImageURL: saved.ImageURL,
		FileName: saved.FileName,
	})
}

func (h *ImagesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "Image storage is unavailable")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	page, err := h.service.List(r.Context(), requesterFromRequest(r), limit, r.URL.Query().Get("start_after"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	items := make([]dto.ImageItem, 0, len(page.Images))
	for _, img := range page.Images {
		items = append(items, mapStoredImage(img))
	}
	httperrors.Write(w, http.StatusOK, dto.ListImagesResponse{
		Success: true,
		Images:  items,
		HasMore: page.HasMore,
	})
}

func mapStoredImage(img model.StoredImage) dto.ImageItem {
	item := dto.ImageItem{
		ID:        img.ID.String(),
		Prompt:    img.Prompt,
		ImageURL:  img.ImageURL,
		FileName:  img.FileName,
		SizeBytes: img.SizeBytes,
		Metadata:  img.Metadata,
		CreatedAt: img.CreatedAt.UTC(),
	}
	if item.Metadata == nil {
		item.Metadata = map[string]any{}
	}
	if img.AttemptID != nil {
		id := img.AttemptID.String()
		item.AttemptID = &id
	}
	return item
}
