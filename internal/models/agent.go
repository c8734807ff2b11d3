package models

type Agent struct {
	Name         string `gorm:"type:varchar(255);not null" json:"name"`
	Instructions string `gorm:"type:text;not null" json:"instructions"`
	Base
}

func NewAgent(name, instructions string) *Agent {
	return &Agent{
		Name:         name,
		Instructions: instructions,
		Base:         NewBase(),
	}
}
