package model

import "time"

// SkillStats 单个用户在某技能上的统计
type SkillStats struct {
	SkillID            string         `json:"skill_id"`
	Attempts           int            `json:"attempts"`
	SuccessfulAttempts int            `json:"successful_attempts"`
	SuccessRate        float64        `json:"success_rate"`
	TotalErrors        int            `json:"total_errors"`
	LastAttempt        *time.Time     `json:"last_attempt"`
	ErrorByStep        map[string]int `json:"error_by_step"`
}

// CommonError 用户错误按 (技能, 步骤, 错误类型) 分组后的一个桶
type CommonError struct {
	SkillID        string `json:"skill_id"`
	StepNumber     int    `json:"step_number"`
	ErrorType      string `json:"error_type"`
	ExpectedAction string `json:"expected_action"`
	ActualAction   string `json:"actual_action"`
	Count          int    `json:"count"`
}

type WeakStep struct {
	StepNumber int `json:"step_number"`
	ErrorCount int `json:"error_count"`
}

// GlobalErrorStats 跨用户错误概览
type GlobalErrorStats struct {
	TotalAttempts    int               `json:"total_attempts"`
	TotalUsers       int               `json:"total_users"`
	SkillSummary     []SkillSummary    `json:"skill_summary"`
	ProblematicSteps []ProblematicStep `json:"problematic_steps"`
	ActionConfusion  []ActionConfusion `json:"action_confusion"`
	GeneratedAt      time.Time         `json:"generated_at"`
}

type SkillSummary struct {
	SkillID             string  `json:"skill_id"`
	TotalAttempts       int     `json:"total_attempts"`
	FailedAttempts      int     `json:"failed_attempts"`
	FailureRate         float64 `json:"failure_rate"`
	TotalErrors         int     `json:"total_errors"`
	MostProblematicStep *string `json:"most_problematic_step"`
}

type ProblematicStep struct {
	SkillID         string `json:"skill_id"`
	StepNumber      int    `json:"step_number"`
	ErrorCount      int    `json:"error_count"`
	MostCommonError string `json:"most_common_error"`
}

type ActionConfusion struct {
	Expected    string `json:"expected"`
	Actual      string `json:"actual"`
	Count       int    `json:"count"`
	Description string `json:"description"`
}

// SkillErrorStats 某技能的跨用户错误明细
type SkillErrorStats struct {
	SkillID           string          `json:"skill_id"`
	TotalAttempts     int             `json:"total_attempts"`
	StepErrorRates    []StepErrorRate `json:"step_error_rates"`
	MostDifficultStep *StepErrorRate  `json:"most_difficult_step"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

type StepErrorRate struct {
	StepNumber         int                `json:"step_number"`
	ErrorRate          float64            `json:"error_rate"`
	TotalErrors        int                `json:"total_errors"`
	CommonErrorTypes   []ErrorTypeCount   `json:"common_error_types"`
	CommonWrongActions []WrongActionCount `json:"common_wrong_actions"`
}

type ErrorTypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type WrongActionCount struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Count    int    `json:"count"`
}

type ComparisonResult string

const (
	ComparisonAverage      ComparisonResult = "average"
	ComparisonAboveAverage ComparisonResult = "above_average"
	ComparisonBelowAverage ComparisonResult = "below_average"
)

type SkillComparison struct {
	SkillID           string           `json:"skill_id"`
	YourSuccessRate   float64          `json:"your_success_rate"`
	GlobalSuccessRate float64          `json:"global_success_rate"`
	Comparison        ComparisonResult `json:"comparison"`
}
