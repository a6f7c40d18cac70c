package es

// Body is a search request body in the engine's query DSL.
type Body struct {
	Query Clause `json:"query"`
	Size  int    `json:"size"`
}

// Clause is one node of the query DSL tree.
type Clause map[string]any

// BoolShould combines clauses with OR semantics; at least min of them must
// match.
func BoolShould(min int, clauses ...Clause) Clause {
	return Clause{
		"bool": map[string]any{
			"should":               clauses,
			"minimum_should_match": min,
		},
	}
}

// FuzzyMultiMatch matches query against weighted fields with edit-distance
// tolerance. fields carry boosts inline ("product_name^3").
func FuzzyMultiMatch(query string, fields []string, fuzziness string) Clause {
	return Clause{
		"multi_match": map[string]any{
			"query":     query,
			"fields":    fields,
			"fuzziness": fuzziness,
			"operator":  "or",
		},
	}
}

// MultiMatch matches query against fields with plain OR semantics.
func MultiMatch(query string, fields []string) Clause {
	return Clause{
		"multi_match": map[string]any{
			"query":    query,
			"fields":   fields,
			"operator": "or",
		},
	}
}

// Wildcard matches field values containing keyword as a substring.
func Wildcard(field, keyword string) Clause {
	return Clause{
		"wildcard": map[string]any{
			field: "*" + keyword + "*",
		},
	}
}
