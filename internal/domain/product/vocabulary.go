package product

import "fmt"

// MaxAttributeKeys is the hard cap on live attribute keys. The remote index
// recognizes at most 10 distinct label keys per catalog.
const MaxAttributeKeys = 10

// DefaultAttributeKeys are the attribute keys of the default fashion catalog.
var DefaultAttributeKeys = []string{
	"color", "category", "subcategory", "brand", "gender",
	"style", "material", "pattern",
}

// Vocabulary is the bounded set of attribute keys recognized by the index.
type Vocabulary struct {
	keys  []string
	index map[string]struct{}
}

// NewVocabulary validates and creates a Vocabulary.
func NewVocabulary(keys []string) (Vocabulary, error) {
	if len(keys) == 0 {
		return Vocabulary{}, fmt.Errorf("at least one attribute key is required")
	}
	if len(keys) > MaxAttributeKeys {
		return Vocabulary{}, fmt.Errorf("too many attribute keys (max %d)", MaxAttributeKeys)
	}
	index := make(map[string]struct{}, len(keys))
	ordered := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			return Vocabulary{}, fmt.Errorf("attribute key must not be empty")
		}
		if _, dup := index[k]; dup {
			return Vocabulary{}, fmt.Errorf("duplicate attribute key %q", k)
		}
		index[k] = struct{}{}
		ordered = append(ordered, k)
	}
	return Vocabulary{keys: ordered, index: index}, nil
}

// DefaultVocabulary returns the vocabulary of the default fashion catalog.
func DefaultVocabulary() Vocabulary {
	v, err := NewVocabulary(DefaultAttributeKeys)
	if err != nil {
		panic(err) // static keys, cannot fail
	}
	return v
}

// Contains reports whether key is a member of the vocabulary.
func (v Vocabulary) Contains(key string) bool {
	_, ok := v.index[key]
	return ok
}

// Keys returns the attribute keys in declaration order.
func (v Vocabulary) Keys() []string { return v.keys }

// Len returns the number of attribute keys.
func (v Vocabulary) Len() int { return len(v.keys) }
