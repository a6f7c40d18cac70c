// Package product holds the normalized product records returned by the
// search ability.
package product

// Hit is a single normalized product record from the search engine.
type Hit struct {
	StyleNumber     string  `json:"style_number"`
	ProductName     string  `json:"product_name"`
	Category        string  `json:"category"`
	Score           float64 `json:"score"`
	IsFallback      bool    `json:"is_fallback"`
	FallbackKeyword string  `json:"fallback_keyword,omitempty"`
}

// Result is the outcome of one search invocation. It is constructed fresh
// per call and never cached.
type Result struct {
	Success bool  `json:"success"`
	Results []Hit `json:"results"`
	// Total counts hits after score filtering; OriginalTotal is the raw
	// count reported by the engine before filtering.
	Total           int    `json:"total"`
	OriginalTotal   int    `json:"original_total,omitempty"`
	IsFallback      bool   `json:"is_fallback"`
	FallbackKeyword string `json:"fallback_keyword,omitempty"`
	OriginalKeyword string `json:"original_keyword,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Empty returns a non-success result with no hits. Used for rejected
// requests that never reach the engine.
func Empty(errMsg string) Result {
	return Result{
		Success: false,
		Results: []Hit{},
		Error:   errMsg,
	}
}
