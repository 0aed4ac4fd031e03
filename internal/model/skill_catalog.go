package model

import "encoding/json"

// SkillCatalogEntry 技能索引中的一行
type SkillCatalogEntry struct {
	SkillID    string `json:"skill_id"`
	Title      string `json:"title"`
	Level      string `json:"level"`
	TotalSteps int    `json:"total_steps"`
}

// SkillSteps 技能的步骤定义，开始尝试时原样返回
type SkillSteps struct {
	SkillID      string            `json:"skill_id"`
	Title        string            `json:"title"`
	Level        string            `json:"level"`
	TotalSteps   int               `json:"total_steps"`
	CommonErrors []json.RawMessage `json:"common_errors"`
	Corrections  []json.RawMessage `json:"corrections"`
	Steps        []SkillStep       `json:"steps"`
}

type SkillStep struct {
	StepNumber     int             `json:"step_number"`
	Instruction    string          `json:"instruction"`
	Cues           []string        `json:"cues"`
	ExpectedInputs []string        `json:"expected_inputs"`
	InputActions   []InputAction   `json:"input_actions"`
	PossibleErrors []PossibleError `json:"possible_errors"`
}

type InputAction struct {
	Key         string `json:"key"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

type PossibleError struct {
	ExpectedInput  string `json:"expected_input"`
	ExpectedAction string `json:"expected_action"`
	WrongInput     string `json:"wrong_input"`
	WrongAction    string `json:"wrong_action"`
	ErrorType      string `json:"error_type"`
	Description    string `json:"description"`
}
