package constants

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
	MessageRoleTool      MessageRole = "tool"
)

// ToolAction is the kind of record a tool-role message carries
type ToolAction string

const (
	ToolActionCall        ToolAction = "call"
	ToolActionOutput      ToolAction = "output"
	ToolActionAnnotations ToolAction = "annotations"
)

// FilesMetadataSentinel marks the start of the injected file-context payload in user messages
const FilesMetadataSentinel = "__FILES_METADATA__"

// ParagraphSeparator joins note paragraphs into the single persisted content string
const ParagraphSeparator = "<!-- PARAGRAPH_SEPARATOR -->"

// Stream events sent to clients over SSE
const (
	StreamEventConnected       = "connected"
	StreamEventHeartbeat       = "heartbeat"
	StreamEventAssistantDelta  = "assistant-delta"
	StreamEventToolInvocation  = "tool-invocation"
	StreamEventNoteParagraph   = "note-paragraph"
	StreamEventFlashcard       = "flashcard"
	StreamEventSlide           = "slide"
	StreamEventCV              = "cv"
	StreamEventResponseError   = "response-error"
	StreamEventResponseDone    = "response-done"
	StreamEventScenarioUpdated = "scenario-updated"
)
