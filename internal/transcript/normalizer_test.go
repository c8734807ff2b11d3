package transcript

import (
	"fmt"
	"testing"
	"time"
	"tutor-ai/internal/constants"
	"tutor-ai/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func msgAt(id, role, content string, offset time.Duration) models.ChatMessage {
	return models.ChatMessage{
		ID:        id,
		SessionID: "sess-1",
		Role:      role,
		Content:   content,
		CreatedAt: base.Add(offset),
	}
}

func toolMsg(id, content string, offset time.Duration) models.ChatMessage {
	m := msgAt(id, string(constants.MessageRoleTool), content, offset)
	action := string(constants.ToolActionCall)
	m.ToolAction = &action
	return m
}

func annotationMsg(id, content string, offset time.Duration) models.ChatMessage {
	m := msgAt(id, string(constants.MessageRoleTool), content, offset)
	action := string(constants.ToolActionAnnotations)
	m.ToolAction = &action
	return m
}

func TestNormalize_AttachesClosestAnnotationWithinWindow(t *testing.T) {
	messages := []models.ChatMessage{
		msgAt("u1", "user", "what is osmosis?", -5*time.Second),
		msgAt("a1", "assistant", "Osmosis is...", 0),
		annotationMsg("n1", `{"citations":["near"]}`, 2*time.Second),
		annotationMsg("n2", `{"citations":["far"]}`, 40*time.Second),
	}

	out := Normalize(messages)

	require.Len(t, out, 2)
	require.NotNil(t, out[1].Annotations)
	assert.Equal(t, `{"citations":["near"]}`, out[1].Annotations.Content)
	assert.Equal(t, "annotations", out[1].Annotations.ToolAction)
}

func TestNormalize_IgnoresAnnotationOutsideWindow(t *testing.T) {
	messages := []models.ChatMessage{
		msgAt("a1", "assistant", "hello", 0),
		annotationMsg("n1", `{"citations":[]}`, 31*time.Second),
		annotationMsg("n0", `{"citations":[]}`, -time.Second),
	}

	out := Normalize(messages)

	require.Len(t, out, 1)
	assert.Nil(t, out[0].Annotations)
}

func TestNormalize_SkipsUnparsableToolMessages(t *testing.T) {
	messages := []models.ChatMessage{
		msgAt("u1", "user", "make a card", -10*time.Second),
		toolMsg("t1", "{not json", -5*time.Second),
		toolMsg("t2", `{"tool":"createFlashCard","args":{"front":"A"},"result":{"success":true}}`, -4*time.Second),
		msgAt("a1", "assistant", "done", 0),
	}

	var out []DisplayMessage
	require.NotPanics(t, func() { out = Normalize(messages) })

	require.Len(t, out, 2)
	require.Len(t, out[1].ToolInvocations, 1)
	assert.Equal(t, "createFlashCard", out[1].ToolInvocations[0].ToolName)
	assert.Equal(t, StateResult, out[1].ToolInvocations[0].State)
}

func TestNormalize_MergesCallAndResultIntoSingleInvocation(t *testing.T) {
	cases := map[string]time.Duration{
		"result before reply": -time.Second,
		"result after reply":  3 * time.Second,
	}
	for name, resultOffset := range cases {
		t.Run(name, func(t *testing.T) {
			messages := []models.ChatMessage{
				msgAt("u1", "user", "edit slide 2", -10*time.Second),
				toolMsg("t1", `{"tool":"editSlide","args":{"id":"2"}}`, -2*time.Second),
				msgAt("a1", "assistant", "Slide updated", 0),
				toolMsg("t2", `{"tool":"editSlide","args":{"id":"2"},"result":{"id":"2","title":"Cells"}}`, resultOffset),
			}

			out := Normalize(messages)

			require.Len(t, out, 2)
			assistant := out[1]
			require.Len(t, assistant.ToolInvocations, 1)
			assert.Equal(t, "editSlide", assistant.ToolInvocations[0].ToolName)
			assert.Equal(t, StateResult, assistant.ToolInvocations[0].State)
			assert.Equal(t, map[string]interface{}{"id": "2", "title": "Cells"}, assistant.ToolInvocations[0].Result)
		})
	}
}

func TestNormalize_AttributesEachToolToOneReply(t *testing.T) {
	messages := []models.ChatMessage{
		msgAt("u1", "user", "q1", 0),
		msgAt("a1", "assistant", "r1", 10*time.Second),
		toolMsg("t1", `{"tool":"editParagraph","args":{"id":"1"},"result":{"id":"1"}}`, 12*time.Second),
		msgAt("a2", "assistant", "r2", 20*time.Second),
		msgAt("u2", "user", "q2", 30*time.Second),
		toolMsg("t2", `{"tool":"editParagraph","args":{"id":"2"},"result":{"id":"2"}}`, 35*time.Second),
		msgAt("a3", "assistant", "r3", 40*time.Second),
	}

	out := Normalize(messages)

	require.Len(t, out, 5)
	byID := map[string]DisplayMessage{}
	for _, m := range out {
		byID[m.ID] = m
	}
	assert.Empty(t, byID["a1"].ToolInvocations)
	require.Len(t, byID["a2"].ToolInvocations, 1)
	assert.Equal(t, "1", byID["a2"].ToolInvocations[0].Args["id"])
	require.Len(t, byID["a3"].ToolInvocations, 1)
	assert.Equal(t, "2", byID["a3"].ToolInvocations[0].Args["id"])
}

func TestNormalize_TrailingToolsWithinTenMinutes(t *testing.T) {
	messages := []models.ChatMessage{
		msgAt("u1", "user", "q", 0),
		msgAt("a1", "assistant", "r", time.Second),
		toolMsg("t1", `{"tool":"editCV","args":{},"result":{"ok":true}}`, 9*time.Minute),
		toolMsg("t2", `{"tool":"editCV","args":{},"result":{"ok":true}}`, 11*time.Minute),
	}

	out := Normalize(messages)

	require.Len(t, out, 2)
	assert.Len(t, out[1].ToolInvocations, 1)
}

func TestNormalize_PrefersMetadataInvocations(t *testing.T) {
	assistant := msgAt("a1", "assistant", "r", 0)
	assistant.Metadata = models.NewJSON(map[string]interface{}{
		"toolInvocations": []interface{}{
			map[string]interface{}{"toolName": "editSlide", "args": map[string]interface{}{"id": "1"}, "state": "result", "result": map[string]interface{}{"id": "1"}},
		},
	})
	messages := []models.ChatMessage{
		msgAt("u1", "user", "q", -time.Minute),
		toolMsg("t1", `{"tool":"editParagraph","args":{"id":"9"}}`, -time.Second),
		assistant,
	}

	out := Normalize(messages)

	require.Len(t, out, 2)
	require.Len(t, out[1].ToolInvocations, 1)
	assert.Equal(t, "editSlide", out[1].ToolInvocations[0].ToolName)
}

func TestNormalize_FiltersAgentSwitchNotices(t *testing.T) {
	switchEvent := msgAt("s4", "assistant", "handing over", 4*time.Second)
	switchEvent.Metadata = models.NewJSON(map[string]interface{}{"event_type": "agent_switch"})

	messages := []models.ChatMessage{
		msgAt("s1", "system", "Switching to Research Agent", 0),
		msgAt("s2", "system", "Triage Agent", time.Second),
		msgAt("s3", "system", "Using Deep Seek reasoning", 2*time.Second),
		msgAt("s5", "system", "You are a helpful tutor", 3*time.Second),
		switchEvent,
		msgAt("u1", "user", "Tell me about Deep Seek", 5*time.Second),
	}

	out := Normalize(messages)

	ids := make([]string, 0, len(out))
	for _, m := range out {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"s5", "u1"}, ids)
}

func TestNormalize_StripsInjectedFileContext(t *testing.T) {
	messages := []models.ChatMessage{
		msgAt("u1", "user", "summarise this"+constants.FilesMetadataSentinel+`{"files":[1,2]}`, 0),
		msgAt("a1", "assistant", "keep "+constants.FilesMetadataSentinel, time.Second),
	}

	out := Normalize(messages)

	require.Len(t, out, 2)
	assert.Equal(t, "summarise this", out[0].Content)
	assert.Equal(t, "keep "+constants.FilesMetadataSentinel, out[1].Content)
}

func TestParseToolInvocation(t *testing.T) {
	t.Run("call without result", func(t *testing.T) {
		inv, err := ParseToolInvocation(`{"tool":"editSlide","args":{"id":"3"}}`)
		require.NoError(t, err)
		assert.Equal(t, StateCall, inv.State)
		assert.Nil(t, inv.Result)
	})

	t.Run("null result still counts as result", func(t *testing.T) {
		inv, err := ParseToolInvocation(`{"tool":"editSlide","args":{},"result":null}`)
		require.NoError(t, err)
		assert.Equal(t, StateResult, inv.State)
	})

	t.Run("missing tool name", func(t *testing.T) {
		_, err := ParseToolInvocation(`{"args":{}}`)
		assert.Error(t, err)
	})

	t.Run("tool call id aliases", func(t *testing.T) {
		inv, err := ParseToolInvocation(`{"tool":"editSlide","tool_call_id":"call_1"}`)
		require.NoError(t, err)
		assert.Equal(t, "call_1", inv.ToolCallID)
		assert.NotNil(t, inv.Args)
	})
}

func BenchmarkNormalize(b *testing.B) {
	messages := make([]models.ChatMessage, 0, 600)
	for i := 0; i < 200; i++ {
		offset := time.Duration(i) * time.Minute
		messages = append(messages,
			msgAt(fmt.Sprintf("u%d", i), "user", "q", offset),
			toolMsg(fmt.Sprintf("t%d", i), `{"tool":"editParagraph","args":{"id":"1"},"result":{"id":"1"}}`, offset+time.Second),
			msgAt(fmt.Sprintf("a%d", i), "assistant", "r", offset+2*time.Second),
		)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Normalize(messages)
	}
}
