package es

import "encoding/json"

// Response is the engine's reply to a search request.
type Response struct {
	Took int  `json:"took"`
	Hits Hits `json:"hits"`
}

// Hits holds the hit envelope of a response.
type Hits struct {
	Total Total `json:"total"`
	Hits  []Hit `json:"hits"`
}

// Hit is a single returned document with its relevance score.
type Hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

// Total is the engine-reported total hit count. Depending on engine version
// it arrives as a bare integer or as {"value": N, "relation": "eq"}. Known
// is false when neither shape parsed; callers then count returned hits.
type Total struct {
	Value int
	Known bool
}

// UnmarshalJSON accepts both total-count shapes.
func (t *Total) UnmarshalJSON(data []byte) error {
	var scalar int
	if err := json.Unmarshal(data, &scalar); err == nil {
		t.Value = scalar
		t.Known = true
		return nil
	}

	var obj struct {
		Value *int `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Value != nil {
		t.Value = *obj.Value
		t.Known = true
		return nil
	}

	// Unparseable totals are not an error; the caller falls back to len(hits).
	t.Known = false
	return nil
}
