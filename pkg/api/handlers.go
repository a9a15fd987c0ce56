package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/meld/pkg/core"
	"github.com/rubiojr/meld/pkg/version"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "Missing query parameter", "Query parameter 'q' is required")
		return
	}

	offset, err := parseIntParam(r, "offset", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid offset", err.Error())
		return
	}
	limit, err := parseIntParam(r, "limit", defaultSearchLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid limit", err.Error())
		return
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	results, err := s.blend().SearchBlended(r.Context(), core.NewQuery(query), offset, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}

	records := make([]RecordResponse, 0, results.Len())
	for _, record := range results.Records() {
		records = append(records, recordResponse(record))
	}

	response := SearchResponse{
		Query:          query,
		Records:        records,
		Count:          len(records),
		TotalCount:     results.Total(),
		Offset:         offset,
		Limit:          limit,
		PrimaryCount:   results.PrimaryCount(),
		SecondaryCount: results.SecondaryCount(),
		Source:         results.SourceIdentifier(),
		HasMore:        len(records) == limit && limit > 0 && offset+limit < results.Total(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Record id is required")
		return
	}

	results, err := s.blend().Retrieve(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Retrieval failed", err.Error())
		return
	}
	if results.Len() == 0 {
		s.writeError(w, http.StatusNotFound, "Record not found", fmt.Sprintf("Record '%s' does not exist in either backend", id))
		return
	}

	s.writeJSON(w, http.StatusOK, recordResponse(results.First()))
}

func (s *Server) HandleRecordBatch(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		s.writeError(w, http.StatusBadRequest, "Missing ids parameter", "Query parameter 'ids' is required")
		return
	}

	ids := make([]string, 0)
	for _, id := range strings.Split(idsParam, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		s.writeError(w, http.StatusBadRequest, "Missing ids parameter", "At least one non-empty id is required")
		return
	}

	results, err := s.blend().RetrieveBatch(r.Context(), ids)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Retrieval failed", err.Error())
		return
	}

	records := make([]RecordResponse, 0, results.Len())
	found := make(map[string]bool, results.Len())
	for _, record := range results.Records() {
		records = append(records, recordResponse(record))
		found[record.ID()] = true
	}

	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}

	response := ListRecordsResponse{
		Records: records,
		Count:   len(records),
		Missing: missing,
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleListBackends(w http.ResponseWriter, r *http.Request) {
	blender := s.blend()
	backends := []BackendInfo{
		{Name: blender.Primary().Name(), Type: blender.Primary().Type(), Role: "primary"},
		{Name: blender.Secondary().Name(), Type: blender.Secondary().Type(), Role: "secondary"},
	}

	response := ListBackendsResponse{
		Backends: backends,
		Count:    len(backends),
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}

func parseIntParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("parameter '%s' must be a non-negative integer", name)
	}
	return value, nil
}

func recordResponse(record core.Record) RecordResponse {
	return RecordResponse{
		ID:       record.ID(),
		Title:    record.Title(),
		Text:     record.Text(),
		Source:   record.Source(),
		Metadata: record.Metadata(),
	}
}
