package retrieval

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cob-labs/carebot/internal/knowledge"
	"github.com/cob-labs/carebot/internal/textnorm"
)

const fallbackText = "I'm sorry, I couldn't find an answer to that in our knowledge base. " +
	"Could you rephrase the question, or ask me to connect you with a human agent?"

// Result is a composed answer with the passages that produced it.
// Confidence is the top passage's similarity score, or 0 on the fallback
// path.
type Result struct {
	Text       string              `json:"text"`
	Passages   []knowledge.Passage `json:"passages,omitempty"`
	Confidence float64             `json:"confidence"`
}

// Options tunes retrieval. Zero values fall back to defaults.
type Options struct {
	TopK           int
	ScoreThreshold float64
	Timeout        time.Duration
}

// Engine queries the vector index and composes answers. Collaborator
// failures never propagate: every path yields a user-facing Result.
type Engine struct {
	embedder  Embedder
	index     Index
	topK      int
	threshold float64
	timeout   time.Duration
}

// queryExpansions appends one synonym per matched concept so short queries
// land near the vocabulary the corpus actually uses.
var queryExpansions = map[string][]string{
	"price":   {"pricing", "cost", "plan"},
	"cost":    {"pricing", "price"},
	"product": {"service", "platform", "solution"},
	"support": {"help", "assistance"},
	"feature": {"capability", "functionality"},
	"hours":   {"schedule", "open"},
}

func NewEngine(embedder Embedder, index Index, opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.ScoreThreshold <= 0 {
		opts.ScoreThreshold = 0.3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Engine{
		embedder:  embedder,
		index:     index,
		topK:      opts.TopK,
		threshold: opts.ScoreThreshold,
		timeout:   opts.Timeout,
	}
}

// Answer retrieves and composes a response for the query. It never returns
// an error: embedding or index failures and empty result sets all produce
// the graceful fallback with confidence 0.
func (e *Engine) Answer(ctx context.Context, query textnorm.NormalizedText) Result {
	if query.IsEmpty() {
		return fallback()
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vec, err := e.embedder.Embed(ctx, e.expand(query))
	if err != nil {
		log.Warn().Err(err).Msg("embedding provider unavailable, serving fallback")
		return fallback()
	}

	hits, err := e.index.Query(ctx, vec, e.topK)
	if err != nil {
		log.Warn().Err(err).Msg("vector index unavailable, serving fallback")
		return fallback()
	}

	var passages []knowledge.Passage
	var topScore float64
	for _, hit := range hits {
		if hit.Score < e.threshold {
			continue
		}
		p, err := e.index.Passage(ctx, hit.PassageID)
		if err != nil {
			log.Warn().Err(err).Str("passage_id", hit.PassageID).Msg("passage lookup failed")
			continue
		}
		if len(passages) == 0 {
			topScore = hit.Score
		}
		passages = append(passages, p)
	}

	if len(passages) == 0 {
		return fallback()
	}

	return Result{
		Text:       compose(query, passages),
		Passages:   passages,
		Confidence: topScore,
	}
}

func (e *Engine) expand(query textnorm.NormalizedText) string {
	terms := append([]string(nil), query.Filtered...)
	for _, tok := range query.Filtered {
		if expansions, ok := queryExpansions[tok]; ok {
			for _, x := range expansions {
				if !containsWord(terms, x) {
					terms = append(terms, x)
					break
				}
			}
		}
	}
	return strings.Join(terms, " ")
}

func containsWord(words []string, w string) bool {
	for _, v := range words {
		if v == w {
			return true
		}
	}
	return false
}

// compose builds the answer from the best passages: the top passage leads,
// and a second passage from the same document is appended when present.
// Enumerating passages are rendered as a numbered list.
func compose(query textnorm.NormalizedText, passages []knowledge.Passage) string {
	top := passages[0]

	var b strings.Builder
	if top.Title != "" {
		b.WriteString(top.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(renderPassage(top))

	for _, p := range passages[1:] {
		if p.Source == top.Source && p.ID != top.ID {
			b.WriteString("\n\n")
			b.WriteString(renderPassage(p))
			break
		}
	}

	return b.String()
}

// renderPassage reformats bullet lists into numbered options, which reads
// better when the bot follows up with "reply with a number".
func renderPassage(p knowledge.Passage) string {
	lines := strings.Split(p.Text, "\n")
	bullets := 0
	for _, line := range lines {
		if isBullet(line) {
			bullets++
		}
	}
	if bullets < 2 {
		return strings.TrimSpace(p.Text)
	}

	var out []string
	n := 0
	for _, line := range lines {
		if isBullet(line) {
			n++
			item := strings.TrimLeft(strings.TrimSpace(line), "-*• ")
			out = append(out, strconv.Itoa(n)+". "+strings.TrimSpace(item))
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func isBullet(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "- ") || strings.HasPrefix(t, "* ") || strings.HasPrefix(t, "• ")
}

func fallback() Result {
	return Result{Text: fallbackText, Confidence: 0}
}
