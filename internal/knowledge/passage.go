package knowledge

// Passage is one retrievable chunk of a source document. Passages are
// immutable once indexed; the retrieval engine never mutates them.
type Passage struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Text     string   `json:"text"`
	Tags     []string `json:"tags,omitempty"`
}
