package models

// SearchRequest holds the agent-controlled parameters of a web search.
// The result count is fixed by the adapter.
type SearchRequest struct {
	Query          string   `json:"query"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
	Category       string   `json:"category,omitempty"`
}

// SearchResult is a single normalized web result
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Text          string  `json:"text"`
	PublishedDate *string `json:"published_date"`
}

// SearchResponse has the same shape whether the search succeeded, failed or
// was refused. Error is empty on success.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Error   string         `json:"error,omitempty"`
}
