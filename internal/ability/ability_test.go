package ability

import "testing"

func TestContext_String(t *testing.T) {
	c := Context{"keyword": "necklace", "size": 5}

	if v, ok := c.String("keyword"); !ok || v != "necklace" {
		t.Errorf("String(keyword) = %q, %v", v, ok)
	}
	if _, ok := c.String("size"); ok {
		t.Error("String must reject non-string values")
	}
	if _, ok := c.String("missing"); ok {
		t.Error("String must reject missing keys")
	}
}

func TestContext_Int(t *testing.T) {
	// JSON decoding delivers numbers as float64.
	c := Context{"size": float64(5), "n": 3, "name": "x"}

	if v, ok := c.Int("size"); !ok || v != 5 {
		t.Errorf("Int(size) = %d, %v", v, ok)
	}
	if v, ok := c.Int("n"); !ok || v != 3 {
		t.Errorf("Int(n) = %d, %v", v, ok)
	}
	if _, ok := c.Int("name"); ok {
		t.Error("Int must reject non-numeric values")
	}
}
