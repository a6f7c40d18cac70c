package es

import (
	"encoding/json"
	"strings"
	"testing"
)

func marshalBody(t *testing.T, b *Body) string {
	t.Helper()
	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return string(raw)
}

func TestBody_PrimaryQueryShape(t *testing.T) {
	b := &Body{
		Query: BoolShould(1,
			FuzzyMultiMatch("necklace", []string{"product_name^3", "category^2"}, "AUTO"),
			Wildcard("style_number", "necklace"),
		),
		Size: 5,
	}

	got := marshalBody(t, b)

	for _, want := range []string{
		`"minimum_should_match":1`,
		`"fuzziness":"AUTO"`,
		`"product_name^3"`,
		`"category^2"`,
		`"style_number":"*necklace*"`,
		`"operator":"or"`,
		`"size":5`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("body missing %s\nbody: %s", want, got)
		}
	}
}

func TestBody_FallbackQueryShape(t *testing.T) {
	b := &Body{
		Query: MultiMatch("earring", []string{"product_name", "category"}),
		Size:  3,
	}

	got := marshalBody(t, b)

	if strings.Contains(got, "fuzziness") {
		t.Error("fallback query must not carry fuzziness")
	}
	if strings.Contains(got, "wildcard") {
		t.Error("fallback query must not carry a wildcard clause")
	}
	for _, want := range []string{`"query":"earring"`, `"operator":"or"`, `"size":3`} {
		if !strings.Contains(got, want) {
			t.Errorf("body missing %s\nbody: %s", want, got)
		}
	}
}
