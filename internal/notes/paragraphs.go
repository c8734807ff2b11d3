// Package notes converts between the single persisted note string and its ordered paragraphs.
package notes

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"tutor-ai/internal/constants"
)

// Paragraph is one block of a session's notes. IDs are numeric strings and define the order.
type Paragraph struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	References []string  `json:"references,omitempty"`
}

var (
	referencesMarker = regexp.MustCompile(`\s*<!-- REFERENCES:(\[.*?\]) -->\s*$`)
	idMarker         = regexp.MustCompile(`^\s*<!-- PARAGRAPH_ID:([^ ]+) -->\s*`)
	// any comment that would be read back as structure
	structuralComment = regexp.MustCompile(`<!--\s*(?:PARAGRAPH_SEPARATOR|PARAGRAPH_ID:|REFERENCES:)[\s\S]*?-->`)
)

// ContentToParagraphs splits persisted note content into paragraphs. Segments carrying an
// id marker keep that id; unmarked segments take the next free number by position.
// Blank segments are dropped.
func ContentToParagraphs(content string, now time.Time) []Paragraph {
	if strings.TrimSpace(content) == "" {
		return []Paragraph{}
	}

	parts := strings.Split(content, constants.ParagraphSeparator)
	paragraphs := make([]Paragraph, 0, len(parts))
	taken := make(map[string]bool, len(parts))
	for _, part := range parts {
		body := strings.TrimSpace(part)
		if body == "" {
			continue
		}
		var id string
		if m := idMarker.FindStringSubmatchIndex(body); m != nil {
			id = body[m[2]:m[3]]
			body = strings.TrimSpace(body[m[1]:])
		}
		var refs []string
		if m := referencesMarker.FindStringSubmatchIndex(body); m != nil {
			if err := json.Unmarshal([]byte(body[m[2]:m[3]]), &refs); err == nil {
				body = strings.TrimSpace(body[:m[0]])
			} else {
				refs = nil
			}
		}
		if body == "" {
			continue
		}
		if id == "" || taken[id] {
			id = ""
		}
		paragraphs = append(paragraphs, Paragraph{
			ID:         id,
			Content:    body,
			CreatedAt:  now,
			UpdatedAt:  now,
			References: refs,
		})
		if id != "" {
			taken[id] = true
		}
	}

	next := 1
	for i := range paragraphs {
		if paragraphs[i].ID != "" {
			continue
		}
		for taken[strconv.Itoa(next)] {
			next++
		}
		paragraphs[i].ID = strconv.Itoa(next)
		taken[paragraphs[i].ID] = true
	}
	return paragraphs
}

// ParagraphsToContent joins paragraphs, in id order, into the persisted note string.
// Each segment records its id; separator and marker comments inside a body are removed.
func ParagraphsToContent(paragraphs []Paragraph) string {
	ordered := make([]Paragraph, len(paragraphs))
	copy(ordered, paragraphs)
	SortByID(ordered)

	parts := make([]string, 0, len(ordered))
	for _, p := range ordered {
		body := StripMarkers(p.Content)
		if body == "" {
			continue
		}
		if id := strings.TrimSpace(p.ID); markableID(id) {
			body = "<!-- PARAGRAPH_ID:" + id + " -->\n" + body
		}
		if len(p.References) > 0 {
			if b, err := json.Marshal(p.References); err == nil {
				body += "\n<!-- REFERENCES:" + string(b) + " -->"
			}
		}
		parts = append(parts, body)
	}
	return strings.Join(parts, constants.ParagraphSeparator)
}

func markableID(id string) bool {
	return id != "" && !strings.ContainsAny(id, " \t\n>") && !strings.Contains(id, "--")
}

// StripMarkers removes separator, id and reference comments from a paragraph body
func StripMarkers(body string) string {
	return strings.TrimSpace(structuralComment.ReplaceAllString(body, ""))
}

// SortByID orders paragraphs by numeric id; non-numeric ids sort last, lexically
func SortByID(paragraphs []Paragraph) {
	sort.SliceStable(paragraphs, func(i, j int) bool {
		return LessNumericID(paragraphs[i].ID, paragraphs[j].ID)
	})
}

// LessNumericID compares two numeric-string ids by value
func LessNumericID(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

// Contains reports whether a paragraph with the id exists
func Contains(paragraphs []Paragraph, id string) bool {
	for _, p := range paragraphs {
		if p.ID == id {
			return true
		}
	}
	return false
}
