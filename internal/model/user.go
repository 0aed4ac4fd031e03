package model

import (
	"encoding/json"
	"time"
)

type Phase string

const (
	PhaseFoundation Phase = "Foundation"
	PhaseMobility   Phase = "Mobility"
	PhaseAdvanced   Phase = "Advanced"
)

// swagger:model User
type User struct {
	UserID        string                    `json:"user_id"`
	CurrentPhase  Phase                     `json:"current_phase"`
	SkillProgress map[string]*SkillProgress `json:"skill_progress"`
	Sessions      []json.RawMessage         `json:"sessions"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     *time.Time                `json:"updated_at"`
}

func NewUser(userID string, now time.Time) *User {
	return &User{
		UserID:        userID,
		CurrentPhase:  PhaseFoundation,
		SkillProgress: make(map[string]*SkillProgress),
		Sessions:      []json.RawMessage{},
		CreatedAt:     now,
	}
}

// swagger:model SkillProgress
type SkillProgress struct {
	SkillID            string                      `json:"skill_id"`
	Attempts           int                         `json:"attempts"`
	SuccessfulAttempts int                         `json:"successful_attempts"`
	SuccessRate        float64                     `json:"success_rate"`
	StepErrors         map[string][]StepErrorEntry `json:"step_errors"`
	LastAttempt        *time.Time                  `json:"last_attempt"`
}

func NewSkillProgress(skillID string) *SkillProgress {
	return &SkillProgress{
		SkillID:    skillID,
		StepErrors: make(map[string][]StepErrorEntry),
	}
}

// RecordOutcome 更新计数并重新计算 SuccessRate
func (p *SkillProgress) RecordOutcome(success bool) {
	p.Attempts++
	if success {
		p.SuccessfulAttempts++
	}
	p.SuccessRate = float64(p.SuccessfulAttempts) / float64(p.Attempts)
}

// TotalErrors 统计所有步骤的错误条目数
func (p *SkillProgress) TotalErrors() int {
	total := 0
	for _, errs := range p.StepErrors {
		total += len(errs)
	}
	return total
}

// StepErrorEntry 按步骤归档的错误记录，不再重复步骤号
type StepErrorEntry struct {
	ErrorType      string    `json:"error_type"`
	ExpectedAction string    `json:"expected_action"`
	ActualAction   string    `json:"actual_action"`
	Timestamp      time.Time `json:"timestamp"`
}
