package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"finboard-service/internal/application/dto"
	"finboard-service/internal/domain/entities"
	"finboard-service/internal/domain/interfaces"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/web/respond"
)

// CacheClearer drops de-duplicated data results
type CacheClearer interface {
	ClearCache()
}

// DataHandler exposes the DataService over HTTP
type DataHandler struct {
	fetcher interfaces.DataFetcher
	cache   CacheClearer
	now     func() time.Time
}

// NewDataHandler creates a data handler. cache may be nil.
func NewDataHandler(fetcher interfaces.DataFetcher, cache CacheClearer) *DataHandler {
	return &DataHandler{
		fetcher: fetcher,
		cache:   cache,
		now:     time.Now,
	}
}

// GetData handles GET /api/v1/data/{source}
func (h *DataHandler) GetData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	source := entities.DataSource(mux.Vars(r)["source"])

	opts, err := dto.FetchOptionsFromQuery(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	data, err := h.fetcher.FetchData(ctx, source, opts)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	respond.JSON(ctx, w, http.StatusOK, dto.DataResponse{
		Source:    string(source),
		Data:      data,
		FetchedAt: h.now().UTC(),
	})
}

// ClearCache handles DELETE /api/v1/data/cache
func (h *DataHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		h.cache.ClearCache()
	}
	logging.Info(r.Context(), "Data cache cleared by request", nil)
	w.WriteHeader(http.StatusNoContent)
}
