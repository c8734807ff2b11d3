package notes

import (
	"strings"
	"testing"
	"time"
	"tutor-ai/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func TestContentToParagraphs(t *testing.T) {
	content := "<p>one</p>" + constants.ParagraphSeparator + "  " + constants.ParagraphSeparator + "<p>two</p>\n"

	got := ContentToParagraphs(content, now)

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "<p>one</p>", got[0].Content)
	assert.Equal(t, "2", got[1].ID)
	assert.Equal(t, "<p>two</p>", got[1].Content)
	assert.Equal(t, now, got[1].UpdatedAt)
}

func TestContentToParagraphs_Empty(t *testing.T) {
	assert.Empty(t, ContentToParagraphs("", now))
	assert.Empty(t, ContentToParagraphs("   \n", now))
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"<p>a</p>",
		strings.Join([]string{"<p>a</p>", "<h2>b</h2>", "<ul><li>c</li></ul>"}, constants.ParagraphSeparator),
		"<p>with refs</p>\n<!-- REFERENCES:[\"file-1\",\"https://example.org\"] -->" + constants.ParagraphSeparator + "<p>plain</p>",
	}
	for _, in := range inputs {
		first := ContentToParagraphs(in, now)
		out := ParagraphsToContent(first)

		assert.Equal(t, first, ContentToParagraphs(out, now))
		assert.Equal(t, out, ParagraphsToContent(ContentToParagraphs(out, now)))
	}
}

func TestRoundTrip_NormalizesSeparators(t *testing.T) {
	in := "  <p>a</p> " + constants.ParagraphSeparator + constants.ParagraphSeparator + "<p>b</p>"

	got := ContentToParagraphs(ParagraphsToContent(ContentToParagraphs(in, now)), now)

	require.Len(t, got, 2)
	assert.Equal(t, "<p>a</p>", got[0].Content)
	assert.Equal(t, "<p>b</p>", got[1].Content)
}

func TestReferencesAreExtracted(t *testing.T) {
	in := "<p>x</p>\n<!-- REFERENCES:[\"file-9\"] -->"

	got := ContentToParagraphs(in, now)

	require.Len(t, got, 1)
	assert.Equal(t, "<p>x</p>", got[0].Content)
	assert.Equal(t, []string{"file-9"}, got[0].References)
}

func TestParagraphsToContent_OrdersNumerically(t *testing.T) {
	paragraphs := []Paragraph{
		{ID: "10", Content: "ten"},
		{ID: "2", Content: "two"},
		{ID: "1", Content: "one"},
	}

	got := ContentToParagraphs(ParagraphsToContent(paragraphs), now)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"one", "two", "ten"}, []string{got[0].Content, got[1].Content, got[2].Content})
	assert.Equal(t, "10", paragraphs[0].ID, "input slice must not be reordered")
}

func TestParagraphIDsSurviveReload(t *testing.T) {
	paragraphs := []Paragraph{
		{ID: "2", Content: "<p>second</p>"},
		{ID: "7", Content: "<p>seventh</p>", References: []string{"file-1"}},
	}

	got := ContentToParagraphs(ParagraphsToContent(paragraphs), now)

	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "<p>second</p>", got[0].Content)
	assert.Equal(t, "7", got[1].ID)
	assert.Equal(t, []string{"file-1"}, got[1].References)
	assert.True(t, Contains(got, "2"))
	assert.False(t, Contains(got, "1"))
}

func TestContentToParagraphs_UnmarkedSegmentsTakeFreeIDs(t *testing.T) {
	content := "<!-- PARAGRAPH_ID:1 -->\n<p>a</p>" + constants.ParagraphSeparator + "<p>b</p>" +
		constants.ParagraphSeparator + "<!-- PARAGRAPH_ID:1 -->\n<p>c</p>"

	got := ContentToParagraphs(content, now)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestParagraphsToContent_StripsStructuralComments(t *testing.T) {
	hostile := []Paragraph{
		{ID: "1", Content: "<p>a</p>" + constants.ParagraphSeparator + "<p>b</p>"},
		{ID: "2", Content: "<p>c</p>\n<!-- REFERENCES:[\"evil\"] -->"},
		{ID: "3", Content: "<!-- PARAGRAPH_ID:9 --><p>d</p>"},
	}

	got := ContentToParagraphs(ParagraphsToContent(hostile), now)

	require.Len(t, got, 3)
	assert.Equal(t, "<p>a</p><p>b</p>", got[0].Content)
	assert.Equal(t, "<p>c</p>", got[1].Content)
	assert.Empty(t, got[1].References)
	assert.Equal(t, "3", got[2].ID)
	assert.Equal(t, "<p>d</p>", got[2].Content)
}

func TestLessNumericID(t *testing.T) {
	assert.True(t, LessNumericID("2", "10"))
	assert.False(t, LessNumericID("10", "2"))
	assert.True(t, LessNumericID("3", "abc"))
	assert.False(t, LessNumericID("abc", "3"))
	assert.True(t, LessNumericID("abc", "abd"))
}
