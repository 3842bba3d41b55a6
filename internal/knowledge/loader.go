package knowledge

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	maxChunkSize = 600
	minChunkSize = 50
)

var headerSplit = regexp.MustCompile(`(?m)^#{1,3}\s+`)

var categoryKeywords = map[string][]string{
	"pricing":  {"pricing", "price", "cost", "$", "plan", "subscription"},
	"support":  {"support", "help", "contact", "assistance", "troubleshoot"},
	"features": {"feature", "capability", "function", "tool"},
	"security": {"security", "encryption", "compliance", "gdpr", "hipaa"},
	"policy":   {"policy", "return", "refund", "warranty", "terms"},
}

// LoadDir reads every markdown/text file under dir and chunks it into
// passages with deterministic ids, so reindexing the same corpus always
// produces the same passage set.
func LoadDir(dir string) ([]Passage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read knowledge dir: %w", err)
	}

	var passages []Passage
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".md" && ext != ".txt" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		passages = append(passages, ChunkDocument(name, string(raw))...)
	}
	return passages, nil
}

// ChunkDocument splits a document into passages, preferring header sections
// and falling back to paragraph grouping for oversized sections.
func ChunkDocument(source, content string) []Passage {
	title := documentTitle(source, content)

	var chunks []string
	for _, section := range splitSections(content) {
		section = strings.TrimSpace(section)
		if len(section) < minChunkSize {
			continue
		}
		if len(section) <= maxChunkSize {
			chunks = append(chunks, section)
			continue
		}
		chunks = append(chunks, splitParagraphs(section)...)
	}

	passages := make([]Passage, 0, len(chunks))
	for i, chunk := range chunks {
		passages = append(passages, Passage{
			ID:       chunkID(source, i),
			Source:   source,
			Title:    title,
			Category: categorize(chunk),
			Text:     chunk,
			Tags:     extractTags(chunk),
		})
	}
	return passages
}

func splitSections(content string) []string {
	idxs := headerSplit.FindAllStringIndex(content, -1)
	if len(idxs) == 0 {
		return []string{content}
	}
	var sections []string
	if idxs[0][0] > 0 {
		sections = append(sections, content[:idxs[0][0]])
	}
	for i, idx := range idxs {
		end := len(content)
		if i+1 < len(idxs) {
			end = idxs[i+1][0]
		}
		sections = append(sections, content[idx[0]:end])
	}
	return sections
}

func splitParagraphs(section string) []string {
	var chunks []string
	var current strings.Builder
	for _, para := range strings.Split(section, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para) > maxChunkSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(para)
		current.WriteString("\n\n")
	}
	if tail := strings.TrimSpace(current.String()); len(tail) >= minChunkSize {
		chunks = append(chunks, tail)
	}
	return chunks
}

func documentTitle(source, content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
		if line != "" {
			break
		}
	}
	name := strings.TrimSuffix(source, filepath.Ext(source))
	return strings.ReplaceAll(name, "_", " ")
}

func chunkID(source string, index int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s#%d", source, index)))
	return hex.EncodeToString(sum[:8])
}

// categoryOrder fixes evaluation order so categorization is deterministic.
var categoryOrder = []string{"pricing", "support", "features", "security", "policy"}

func categorize(text string) string {
	lower := strings.ToLower(text)
	for _, category := range categoryOrder {
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(lower, kw) {
				return category
			}
		}
	}
	return "general"
}

func extractTags(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, category := range categoryOrder {
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(lower, kw) {
				tags = append(tags, category)
				break
			}
		}
	}
	return tags
}
