package transcript

import (
	"regexp"
	"testing"
	"time"
	"tutor-ai/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_OmitsLegacyToolCallWhenInvocationsPresent(t *testing.T) {
	legacy := map[string]interface{}{"toolCall": map[string]interface{}{"name": "editSlide"}}
	in := []DisplayMessage{
		{
			ID: "a1", Role: "assistant", Content: "x", Timestamp: base,
			ToolInvocations: []ToolInvocation{{ToolName: "editSlide", State: StateResult, Args: map[string]interface{}{}}},
			Metadata:        legacy,
		},
		{ID: "a2", Role: "assistant", Content: "y", Timestamp: base.Add(time.Second), Metadata: legacy},
	}

	out := Assemble(in)

	require.Len(t, out.Messages, 2)
	assert.Nil(t, out.Messages[0].ToolCall)
	assert.Len(t, out.Messages[0].ToolInvocations, 1)
	require.NotNil(t, out.Messages[1].ToolCall)
	assert.Equal(t, "editSlide", out.Messages[1].ToolCall.Name)
}

func TestAssemble_SynthesizesMissingIDsAndBuildsAgentMap(t *testing.T) {
	in := []DisplayMessage{
		{ID: "", Role: "assistant", Content: "x", Timestamp: base, AgentName: "Research Agent"},
		{ID: "a2", Role: "assistant", Content: "y", Timestamp: base, AgentName: "Tutor"},
		{ID: "u1", Role: "user", Content: "z", Timestamp: base},
	}

	out := Assemble(in)

	require.Len(t, out.Messages, 3)
	synth := out.Messages[0].ID
	assert.Regexp(t, regexp.MustCompile(`^msg-\d+-[0-9a-f]{8}$`), synth)
	assert.Equal(t, "Research Agent", out.AgentMap[synth])
	assert.Equal(t, "Tutor", out.AgentMap["a2"])
	_, hasUser := out.AgentMap["u1"]
	assert.False(t, hasUser)
}

func TestBuild_EndToEnd(t *testing.T) {
	agent := "Slides Agent"
	assistant := msgAt("a1", "assistant", "Updated your slide.", 0)
	assistant.AgentName = &agent

	raw := []models.ChatMessage{
		msgAt("u1", "user", "change slide 1"+"__FILES_METADATA__{}", -20*time.Second),
		toolMsg("t1", `{"tool":"editSlide","toolCallId":"c1","args":{"id":"1"}}`, -10*time.Second),
		toolMsg("t2", `{"tool":"editSlide","toolCallId":"c1","args":{"id":"1"},"result":{"id":"1","title":"Intro"}}`, -5*time.Second),
		assistant,
		assistant,
	}

	got := Build(raw)

	want := []StreamMessage{
		{ID: "u1", Role: "user", Content: "change slide 1", CreatedAt: base.Add(-20 * time.Second)},
		{
			ID: "a1", Role: "assistant", Content: "Updated your slide.", CreatedAt: base,
			ToolInvocations: []ToolInvocation{{
				ToolName:   "editSlide",
				ToolCallID: "c1",
				Args:       map[string]interface{}{"id": "1"},
				Result:     map[string]interface{}{"id": "1", "title": "Intro"},
				State:      StateResult,
			}},
		},
	}
	if diff := cmp.Diff(want, got.Messages); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]string{"a1": agent}, got.AgentMap)
}
