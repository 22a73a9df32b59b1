package retrieval

import "errors"

// ErrRetrievalFailed is surfaced for any embedding or vector-search failure.
// An empty result set is not a failure; callers receive an empty slice and a
// nil error for queries that simply match nothing.
var ErrRetrievalFailed = errors.New("retrieval failed")

// Match is one vector-search hit that survived the score threshold.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryOptions tune a single retrieval call.
type QueryOptions struct {
	// Filter is an equality metadata filter applied server-side.
	Filter map[string]any
	// TopK bounds how many neighbors the index returns before thresholding.
	TopK int
	// Summarized replaces each surviving passage with a model-generated summary.
	Summarized bool
}
