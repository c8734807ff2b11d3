package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/models"
	"tutor-ai/internal/notes"
	"tutor-ai/internal/transcript"

	"github.com/google/uuid"
)

var errMissingID = errors.New("tool result carries no id")

func createFlashCard(ws *Workspace, inv transcript.ToolInvocation, now time.Time) (*Effect, error) {
	result := resultObject(inv.Result)
	if !truthy(result["success"]) {
		return nil, nil
	}

	card := firstObject(result, "flashcard", "card")
	id := firstString(card, "id")
	if id == "" {
		id = firstString(result, "id", "cardId", "card_id")
	}
	if id == "" {
		id = uuid.NewString()
	}
	if ws.flashcardIndex(id) >= 0 {
		return nil, nil
	}

	fc := models.Flashcard{
		SessionID: ws.SessionID,
		Front:     firstString(card, "front"),
		Back:      firstString(card, "back"),
		Tags:      models.NewJSON(stringSlice(card["tags"])),
		Base:      models.Base{ID: id, CreatedAt: now, UpdatedAt: now},
	}
	if fc.Front == "" {
		fc.Front = firstString(inv.Args, "front", "question")
	}
	if fc.Back == "" {
		fc.Back = firstString(inv.Args, "back", "answer")
	}
	if len(fc.Tags.Data) == 0 {
		fc.Tags = models.NewJSON(stringSlice(inv.Args["tags"]))
	}

	ws.Flashcards = append(ws.Flashcards, fc)
	return &Effect{Event: constants.StreamEventFlashcard, Op: OpCreate, Data: fc}, nil
}

func editFlashCard(ws *Workspace, inv transcript.ToolInvocation, now time.Time) (*Effect, error) {
	result := resultObject(inv.Result)
	id := firstString(result, "cardId", "card_id")
	if id == "" {
		id = firstString(inv.Args, "cardId", "card_id", "id")
	}
	idx := ws.flashcardIndex(id)
	if idx < 0 {
		return nil, nil
	}

	patch := firstObject(result, "flashcard", "card", "updates")
	if len(patch) == 0 {
		patch = firstObject(inv.Args, "updates")
	}
	if len(patch) == 0 {
		patch = inv.Args
	}

	fc := ws.Flashcards[idx]
	if v, ok := patch["front"].(string); ok {
		fc.Front = v
	}
	if v, ok := patch["back"].(string); ok {
		fc.Back = v
	}
	if _, ok := patch["tags"]; ok {
		fc.Tags = models.NewJSON(stringSlice(patch["tags"]))
	}
	fc.UpdatedAt = now
	ws.Flashcards[idx] = fc

	return &Effect{Event: constants.StreamEventFlashcard, Op: OpUpdate, Data: fc}, nil
}

func deleteFlashCard(ws *Workspace, inv transcript.ToolInvocation, _ time.Time) (*Effect, error) {
	result := resultObject(inv.Result)
	id := firstString(result, "deletedId", "deleted_id")
	if id == "" {
		id = firstString(inv.Args, "cardId", "card_id", "id")
	}
	idx := ws.flashcardIndex(id)
	if idx < 0 {
		return nil, nil
	}

	removed := ws.Flashcards[idx]
	ws.Flashcards = append(ws.Flashcards[:idx], ws.Flashcards[idx+1:]...)
	return &Effect{Event: constants.StreamEventFlashcard, Op: OpDelete, Data: removed}, nil
}

func editSlide(ws *Workspace, inv transcript.ToolInvocation, now time.Time) (*Effect, error) {
	result := resultObject(inv.Result)
	slide := firstObject(result, "slide")
	if len(slide) == 0 {
		slide = result
	}

	id := firstString(slide, "id", "slideId", "slide_id", "slideNumber")
	if id == "" {
		id = firstString(inv.Args, "slideId", "slide_id", "slideNumber", "id")
	}
	if id == "" {
		return nil, fmt.Errorf("%s: %w", inv.ToolName, errMissingID)
	}

	s := models.Slide{
		ID:        id,
		SessionID: ws.SessionID,
		Title:     firstNonEmpty(firstString(slide, "title"), firstString(inv.Args, "title")),
		Content:   firstNonEmpty(firstString(slide, "content"), firstString(inv.Args, "content")),
		UpdatedAt: now,
	}
	if img := firstNonEmpty(firstString(slide, "imageUrl", "image_url"), firstString(inv.Args, "imageUrl", "image_url")); img != "" {
		s.ImageURL = &img
	}

	if idx := ws.slideIndex(id); idx >= 0 {
		ws.Slides[idx] = s
	} else {
		ws.Slides = append(ws.Slides, s)
	}
	ws.sortSlides()

	return &Effect{Event: constants.StreamEventSlide, Op: OpUpsert, Data: s}, nil
}

func editParagraph(ws *Workspace, inv transcript.ToolInvocation, now time.Time) (*Effect, error) {
	result := resultObject(inv.Result)
	paragraph := firstObject(result, "paragraph")
	if len(paragraph) == 0 {
		paragraph = result
	}

	id := firstString(paragraph, "id", "paragraphId", "paragraph_id")
	if id == "" {
		id = firstString(inv.Args, "paragraphId", "paragraph_id", "id")
	}
	if id == "" {
		return nil, fmt.Errorf("%s: %w", inv.ToolName, errMissingID)
	}
	// stored paragraphs win over late live events
	if notes.Contains(ws.Paragraphs, id) {
		return nil, nil
	}

	refs := stringSlice(paragraph["references"])
	if len(refs) == 0 {
		refs = stringSlice(inv.Args["references"])
	}
	p := notes.Paragraph{
		ID:         id,
		Content:    notes.RenderParagraph(firstNonEmpty(firstString(paragraph, "content"), firstString(inv.Args, "content"))),
		CreatedAt:  now,
		UpdatedAt:  now,
		References: refs,
	}
	ws.Paragraphs = append(ws.Paragraphs, p)
	notes.SortByID(ws.Paragraphs)

	return &Effect{Event: constants.StreamEventNoteParagraph, Op: OpInsert, Data: p}, nil
}

func editCV(ws *Workspace, inv transcript.ToolInvocation, _ time.Time) (*Effect, error) {
	result := resultObject(inv.Result)
	cv := firstObject(result, "cv", "content")
	if len(cv) == 0 {
		cv = firstObject(inv.Args, "cv", "content")
	}
	if len(cv) == 0 {
		cv = result
	}

	ws.CV = cv
	return &Effect{Event: constants.StreamEventCV, Op: OpReplace, Data: cv}, nil
}

// resultObject reads a tool result as an object; results may arrive JSON-encoded
func resultObject(v interface{}) map[string]interface{} {
	switch r := v.(type) {
	case map[string]interface{}:
		return r
	case string:
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(r), &m); err == nil {
			return m
		}
	case []byte:
		var m map[string]interface{}
		if err := json.Unmarshal(r, &m); err == nil {
			return m
		}
	}
	return map[string]interface{}{}
}

func firstObject(m map[string]interface{}, keys ...string) map[string]interface{} {
	for _, k := range keys {
		if obj := resultObject(m[k]); len(obj) > 0 {
			return obj
		}
	}
	return map[string]interface{}{}
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func stringSlice(v interface{}) []string {
	out := []string{}
	switch s := v.(type) {
	case []string:
		out = append(out, s...)
	case []interface{}:
		for _, item := range s {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
	}
	return out
}

// truthy follows loose JSON truthiness: null, false, 0, "" and NaN are falsy
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}
