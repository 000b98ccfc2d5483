package http

import (
	"errors"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/order-geomap/internal/adapter/geojson"
	"github.com/couchcryptid/order-geomap/internal/adapter/sheet"
	"github.com/couchcryptid/order-geomap/internal/domain"
)

const (
	formatJSON    = "json"
	formatGeoJSON = "geojson"

	contentTypeGeoJSON = "application/geo+json"
)

type schemaErrorBody struct {
	Error           string   `json:"error"`
	RequiredColumns []string `json:"required_columns"`
	MissingColumns  []string `json:"missing_columns"`
}

// handleCreateMap accepts an order sheet as the multipart field "file" and
// responds with the classified result, or GeoJSON when ?format=geojson.
func (s *Server) handleCreateMap(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatJSON
	}
	if format != formatJSON && format != formatGeoJSON {
		writeError(w, http.StatusBadRequest, "format must be json or geojson")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	sheetFormat, err := sheet.FormatFromName(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := sheet.Read(file, sheetFormat)
	if err != nil {
		var schemaErr *domain.SchemaError
		if errors.As(err, &schemaErr) {
			sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, schemaErrorBody{
				Error:           schemaErr.Error(),
				RequiredColumns: domain.RequiredColumns,
				MissingColumns:  schemaErr.Missing,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Geocoding a large sheet can outlast the server-wide write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	result, err := s.mapper.Run(r.Context(), rows, nil)
	if err != nil {
		s.logger.Warn("map request aborted", "file", header.Filename, "rows", len(rows), "error", err)
		writeError(w, http.StatusServiceUnavailable, "request cancelled before geocoding finished")
		return
	}

	s.logger.Info("map request complete",
		"run_id", result.RunID,
		"file", header.Filename,
		"format", format,
		"rows", len(rows),
		"orders", result.Stats.Orders,
		"duration", time.Since(start),
	)

	if format == formatGeoJSON {
		data, err := geojson.Marshal(result)
		if err != nil {
			s.logger.Error("render geojson failed", "run_id", result.RunID, "error", err)
			writeError(w, http.StatusInternalServerError, "render failed")
			return
		}
		w.Header().Set("Content-Type", contentTypeGeoJSON)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}
