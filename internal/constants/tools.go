package constants

// Tool names the agent backend emits results for
const (
	ToolCreateFlashCard = "createFlashCard"
	ToolEditFlashCard   = "editFlashCard"
	ToolDeleteFlashCard = "deleteFlashCard"
	ToolEditSlide       = "editSlide"
	ToolEditParagraph   = "editParagraph"
	ToolEditCV          = "editCV"
)
