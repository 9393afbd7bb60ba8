package freight

// Classifier decides whether a raw product reference is a
// marketplace-native numeric id or a local SKU that has to take the
// postal fallback path. The digit-length window is configurable because
// the marketplace has issued ids of several lengths over the years; the
// classification is a routing heuristic, not a validity check — the
// marketplace remains authoritative and may still reject a native id.
type Classifier struct {
	MinDigits int
	MaxDigits int
}

// Default digit-length window for marketplace product ids.
const (
	DefaultMinDigits = 6
	DefaultMaxDigits = 20
)

// NewClassifier creates a classifier, substituting defaults for
// non-positive bounds.
func NewClassifier(minDigits, maxDigits int) Classifier {
	if minDigits <= 0 {
		minDigits = DefaultMinDigits
	}
	if maxDigits <= 0 {
		maxDigits = DefaultMaxDigits
	}
	return Classifier{MinDigits: minDigits, MaxDigits: maxDigits}
}

// Classify inspects a raw product reference. All-digit ids inside the
// length window are native; all-digit ids outside it are malformed
// (treated as non-native by callers); everything else, including the
// empty string, is foreign.
func (c Classifier) Classify(raw string) Classification {
	if raw == "" {
		return ClassForeign
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return ClassForeign
		}
	}
	if len(raw) < c.MinDigits || len(raw) > c.MaxDigits {
		return ClassMalformed
	}
	return ClassNative
}
