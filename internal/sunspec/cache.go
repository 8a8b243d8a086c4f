package sunspec

// Cache maps register keys to their last decoded, unscaled values.
// Missing keys are absent.
type Cache map[string]Value

// TextMap translates enumerated registers into words, keyed by register
// key and then raw integer value.
type TextMap map[string]map[int64]string

// Resolve returns the scaled value of r.
func (c Cache) Resolve(r Register) Value {
	raw := c[r.Key]
	if r.ScaleFactorKey == "" {
		return raw
	}
	return Resolve(raw, c[r.ScaleFactorKey])
}

// Text returns the symbolic meaning of r's raw value, if texts know it.
func (c Cache) Text(r Register, texts TextMap) (string, bool) {
	codes, ok := texts[r.Key]
	if !ok {
		return "", false
	}
	n, ok := c[r.Key].Int64()
	if !ok {
		return "", false
	}
	text, ok := codes[n]
	return text, ok
}

// Display renders r the way reports show it: the mapped text when there is
// one, else the scaled value with its units, else "N/A".
func (c Cache) Display(r Register, texts TextMap) string {
	if text, ok := c.Text(r, texts); ok {
		return text
	}
	v := c.Resolve(r)
	if v.IsAbsent() {
		return "N/A"
	}
	if r.Units != "" {
		return v.String() + " " + r.Units
	}
	return v.String()
}

func (c Cache) clone() Cache {
	out := make(Cache, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
