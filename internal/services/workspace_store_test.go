package services

import (
	"context"
	"fmt"
	"testing"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/dispatch"
	"tutor-ai/internal/models"
	"tutor-ai/internal/notes"
	"tutor-ai/internal/transcript"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceStore_LoadWorkspace(t *testing.T) {
	noteRepo := newFakeNoteRepo()
	wsRepo := newFakeWorkspaceRepo()
	ctx := context.Background()

	require.NoError(t, noteRepo.Upsert(ctx, &models.Note{ID: "n1", UserID: "u1", SessionID: "s1",
		Content: "<p>a</p>" + constants.ParagraphSeparator + "<p>b</p>"}))
	require.NoError(t, wsRepo.SaveFlashcard(ctx, &models.Flashcard{SessionID: "s1", Front: "Q", Base: models.Base{ID: "fc-1"}}))
	require.NoError(t, wsRepo.UpsertSlide(ctx, &models.Slide{ID: "1", SessionID: "s1", Title: "Intro"}))
	require.NoError(t, wsRepo.UpsertCV(ctx, &models.CVDocument{SessionID: "s1", Content: models.NewJSON(map[string]interface{}{"name": "Ada"})}))

	store := NewWorkspaceStore(noteRepo, wsRepo, newFakeSessionRepo())
	ws, err := store.LoadWorkspace(ctx, "s1")
	require.NoError(t, err)

	ids := make([]string, 0, len(ws.Paragraphs))
	for _, p := range ws.Paragraphs {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"1", "2"}, ids); diff != "" {
		t.Errorf("paragraph ids mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, ws.Flashcards, 1)
	assert.Len(t, ws.Slides, 1)
	assert.Equal(t, "Ada", ws.CV["name"])
}

func TestWorkspaceStore_LoadWorkspaceError(t *testing.T) {
	wsRepo := newFakeWorkspaceRepo()
	wsRepo.err = errBoom
	store := NewWorkspaceStore(newFakeNoteRepo(), wsRepo, newFakeSessionRepo())

	_, err := store.LoadWorkspace(context.Background(), "s1")
	assert.ErrorIs(t, err, errBoom)
}

func TestWorkspaceStore_Apply(t *testing.T) {
	session := models.NewChatSession("u1", "t", "a")
	session.ID = "s1"
	noteRepo := newFakeNoteRepo()
	wsRepo := newFakeWorkspaceRepo()
	store := NewWorkspaceStore(noteRepo, wsRepo, newFakeSessionRepo(session))
	ctx := context.Background()

	card := models.Flashcard{SessionID: "s1", Front: "Q", Base: models.Base{ID: "fc-1"}}
	require.NoError(t, store.Apply(ctx, dispatch.Effect{Event: constants.StreamEventFlashcard, SessionID: "s1", Op: dispatch.OpCreate, Data: card}))
	assert.Contains(t, wsRepo.flashcards, "fc-1")
	require.NoError(t, store.Apply(ctx, dispatch.Effect{Event: constants.StreamEventFlashcard, SessionID: "s1", Op: dispatch.OpDelete, Data: card}))
	assert.NotContains(t, wsRepo.flashcards, "fc-1")

	require.NoError(t, store.Apply(ctx, dispatch.Effect{Event: constants.StreamEventSlide, SessionID: "s1", Op: dispatch.OpUpsert,
		Data: models.Slide{ID: "2", SessionID: "s1", Title: "Two"}}))
	assert.Contains(t, wsRepo.slides, "s1/2")

	require.NoError(t, store.Apply(ctx, dispatch.Effect{Event: constants.StreamEventCV, SessionID: "s1", Op: dispatch.OpReplace,
		Data: map[string]interface{}{"name": "Ada"}}))
	assert.Equal(t, "Ada", wsRepo.cvs["s1"].Content.Data["name"])

	for _, p := range []notes.Paragraph{{ID: "1", Content: "<p>one</p>"}, {ID: "2", Content: "<p>two</p>"}, {ID: "1", Content: "<p>dup</p>"}} {
		require.NoError(t, store.Apply(ctx, dispatch.Effect{Event: constants.StreamEventNoteParagraph, SessionID: "s1", Op: dispatch.OpInsert, Data: p}))
	}
	note, _ := noteRepo.FindBySession(ctx, "s1")
	require.NotNil(t, note)
	assert.Equal(t, "u1", note.UserID)
	stored := notes.ContentToParagraphs(note.Content, note.UpdatedAt)
	require.Len(t, stored, 2)
	assert.Equal(t, "<p>one</p>", stored[0].Content)
	assert.Equal(t, "<p>two</p>", stored[1].Content)

	err := store.Apply(ctx, dispatch.Effect{Event: constants.StreamEventCV, SessionID: "s1", Data: 42})
	assert.Error(t, err)
}

func TestWorkspaceStore_ParagraphForUnknownSession(t *testing.T) {
	store := NewWorkspaceStore(newFakeNoteRepo(), newFakeWorkspaceRepo(), newFakeSessionRepo())

	err := store.Apply(context.Background(), dispatch.Effect{Event: constants.StreamEventNoteParagraph, SessionID: "nope",
		Data: notes.Paragraph{ID: "1", Content: "x"}})
	assert.Error(t, err)
}

func TestWorkspaceStore_OutOfOrderParagraphsSurviveReload(t *testing.T) {
	session := models.NewChatSession("u1", "t", "a")
	session.ID = "s1"
	store := NewWorkspaceStore(newFakeNoteRepo(), newFakeWorkspaceRepo(), newFakeSessionRepo(session))
	pool := dispatch.NewPool(dispatch.DefaultRegistry(), store, store)
	ctx := context.Background()

	d, err := pool.Get(ctx, "s1")
	require.NoError(t, err)
	for i, p := range []struct{ id, content string }{{"2", "<p>second</p>"}, {"1", "<p>first</p>"}} {
		d.ProcessInvocations(ctx, []transcript.ToolInvocation{{
			ToolName:   constants.ToolEditParagraph,
			ToolCallID: fmt.Sprintf("c%d", i),
			Args:       map[string]interface{}{"paragraphId": p.id},
			Result:     map[string]interface{}{"success": true, "paragraph": map[string]interface{}{"id": p.id, "content": p.content}},
			State:      transcript.StateResult,
		}})
	}

	reloaded, err := store.LoadWorkspace(ctx, "s1")
	require.NoError(t, err)

	type row struct{ ID, Content string }
	var live, persisted []row
	for _, p := range d.Workspace().Paragraphs {
		live = append(live, row{p.ID, p.Content})
	}
	for _, p := range reloaded.Paragraphs {
		persisted = append(persisted, row{p.ID, p.Content})
	}
	want := []row{{"1", "<p>first</p>"}, {"2", "<p>second</p>"}}
	if diff := cmp.Diff(want, live); diff != "" {
		t.Errorf("live paragraphs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, persisted); diff != "" {
		t.Errorf("persisted paragraphs mismatch (-want +got):\n%s", diff)
	}
}
