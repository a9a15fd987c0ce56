package api

import "time"

type RecordResponse struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Text     string                 `json:"text"`
	Source   string                 `json:"source"`
	Metadata map[string]interface{} `json:"metadata"`
}

type SearchResponse struct {
	Query          string           `json:"query"`
	Records        []RecordResponse `json:"records"`
	Count          int              `json:"count"`
	TotalCount     int              `json:"total_count"`
	Offset         int              `json:"offset"`
	Limit          int              `json:"limit"`
	PrimaryCount   int              `json:"primary_count"`
	SecondaryCount int              `json:"secondary_count"`
	Source         string           `json:"source"`
	HasMore        bool             `json:"has_more"`
}

type ListRecordsResponse struct {
	Records []RecordResponse `json:"records"`
	Count   int              `json:"count"`
	Missing []string         `json:"missing,omitempty"`
}

type BackendInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Role string `json:"role"`
}

type ListBackendsResponse struct {
	Backends []BackendInfo `json:"backends"`
	Count    int           `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
