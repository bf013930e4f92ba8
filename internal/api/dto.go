package api

// ThresholdsDTO carries the configured review thresholds.
type ThresholdsDTO struct {
	Confidence float64 `json:"confidence" example:"0.7"`
	Relevance  float64 `json:"relevance" example:"0.6"`
}

// InstructionsStatus summarizes the instructions document.
type InstructionsStatus struct {
	Present  bool     `json:"present"`
	Sections []string `json:"sections"`
}

// TopicStatus summarizes one configured topic.
type TopicStatus struct {
	Name        string `json:"name" example:"default"`
	Directory   string `json:"directory" example:"notes"`
	Description string `json:"description,omitempty"`
	NoteCount   int    `json:"note_count" example:"3"`
}

// StatusResponse is the GET /status payload.
type StatusResponse struct {
	Instructions InstructionsStatus `json:"instructions"`
	URLCount     int                `json:"url_count" example:"12"`
	Topics       []TopicStatus      `json:"topics"`
	Thresholds   ThresholdsDTO      `json:"thresholds"`
}

// TagCount is one tag's usage across notes and the URL index.
type TagCount struct {
	Tag   string `json:"tag" example:"go"`
	Notes int    `json:"notes" example:"2"`
	URLs  int    `json:"urls" example:"1"`
}

// TagsResponse wraps the ranked tag list.
type TagsResponse struct {
	Tags []TagCount `json:"tags"`
}

// NoteListItem is a lightweight item in a note list response.
type NoteListItem struct {
	Topic    string   `json:"topic" example:"default"`
	Filename string   `json:"filename" example:"20260827-deploy-checklist.md"`
	Path     string   `json:"path" example:"notes/20260827-deploy-checklist.md"`
	Title    string   `json:"title" example:"Deploy Checklist"`
	Domain   string   `json:"domain,omitempty" example:"engineering"`
	Category string   `json:"category,omitempty" example:"runbook"`
	Tags     []string `json:"tags"`
	Summary  string   `json:"summary,omitempty"`
	Created  string   `json:"created,omitempty" example:"2026-08-27"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total" example:"42"`
}

// NoteDetail is the full note response type.
type NoteDetail struct {
	Topic       string                 `json:"topic"`
	Filename    string                 `json:"filename"`
	Path        string                 `json:"path"`
	Title       string                 `json:"title"`
	Body        string                 `json:"body"`
	Frontmatter map[string]interface{} `json:"frontmatter,omitempty"`
	Tags        []string               `json:"tags"`
}

// SectionDTO is one instructions section.
type SectionDTO struct {
	Name string `json:"name" example:"Team Structure"`
	Body string `json:"body"`
}

// InstructionsResponse is the GET /instructions payload.
type InstructionsResponse struct {
	Present  bool         `json:"present"`
	Content  string       `json:"content,omitempty"`
	Sections []SectionDTO `json:"sections"`
}

// SearchResponse wraps the rendered search result text.
type SearchResponse struct {
	Query  string `json:"query"`
	Result string `json:"result"`
}

// MetricsSummaryResponse is the GET /metrics/summary payload.
type MetricsSummaryResponse struct {
	Total  int            `json:"total" example:"57"`
	ByTool map[string]int `json:"by_tool"`
}
