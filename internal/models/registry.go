package models

// All returns every gorm model, in migration order
func All() []interface{} {
	return []interface{}{
		&Agent{},
		&ChatSession{},
		&ChatMessage{},
		&Note{},
		&Flashcard{},
		&Slide{},
		&CVDocument{},
		&Scenario{},
		&ScenarioProgress{},
	}
}
