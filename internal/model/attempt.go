package model

import "time"

// swagger:model Attempt
type Attempt struct {
	AttemptID     string            `json:"attempt_id"`
	UserID        string            `json:"user_id"`
	SkillID       string            `json:"skill_id"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       *time.Time        `json:"end_time"`
	StepInputs    []InputRecord     `json:"step_inputs"`
	StepErrors    []ErrorRecord     `json:"step_errors"`
	Success       *bool             `json:"success"`
	StepTelemetry []TelemetryRecord `json:"step_telemetry,omitempty"`
}

func NewAttempt(attemptID, userID, skillID string, start time.Time) *Attempt {
	return &Attempt{
		AttemptID:  attemptID,
		UserID:     userID,
		SkillID:    skillID,
		StartTime:  start,
		StepInputs: []InputRecord{},
		StepErrors: []ErrorRecord{},
	}
}

// Succeeded 未设置结果视为失败
func (a *Attempt) Succeeded() bool {
	return a.Success != nil && *a.Success
}

// Clone 深拷贝尝试及其记录切片
func (a *Attempt) Clone() *Attempt {
	c := *a
	c.StepInputs = append([]InputRecord{}, a.StepInputs...)
	c.StepErrors = append([]ErrorRecord{}, a.StepErrors...)
	if a.StepTelemetry != nil {
		c.StepTelemetry = append([]TelemetryRecord{}, a.StepTelemetry...)
	}
	if a.EndTime != nil {
		t := *a.EndTime
		c.EndTime = &t
	}
	if a.Success != nil {
		s := *a.Success
		c.Success = &s
	}
	return &c
}

type InputRecord struct {
	StepNumber    int       `json:"step_number"`
	ExpectedInput string    `json:"expected_input"`
	ActualInput   string    `json:"actual_input"`
	IsCorrect     bool      `json:"is_correct"`
	Timestamp     time.Time `json:"timestamp"`
}

type ErrorRecord struct {
	StepNumber     int       `json:"step_number"`
	ErrorType      string    `json:"error_type"`
	ExpectedAction string    `json:"expected_action"`
	ActualAction   string    `json:"actual_action"`
	Timestamp      time.Time `json:"timestamp"`
}

type TelemetryRecord struct {
	StepNumber     int              `json:"step_number"`
	ExpectedAction string           `json:"expected_action"`
	ActualAction   string           `json:"actual_action"`
	Success        bool             `json:"success"`
	Metrics        TelemetryMetrics `json:"metrics"`
	Timestamp      time.Time        `json:"timestamp"`
}

type TelemetryMetrics struct {
	HoldDuration float64 `json:"hold_duration"`
	PeakForce    float64 `json:"peak_force"`
	Distance     float64 `json:"distance"`
	AssistUsed   bool    `json:"assist_used"`
}
