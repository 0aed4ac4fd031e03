package model

import "time"

type RecommendedSkill struct {
	SkillID     string  `json:"skill_id"`
	Title       string  `json:"title"`
	Level       string  `json:"level"`
	Attempts    int     `json:"attempts"`
	SuccessRate float64 `json:"success_rate"`
	Priority    int     `json:"priority"`
	Reason      string  `json:"reason"`
}

type FocusSkill struct {
	SkillID     string   `json:"skill_id"`
	TotalErrors int      `json:"total_errors"`
	ErrorTypes  []string `json:"error_types"`
}

type GlobalInsights struct {
	MostFailedSkills []string          `json:"most_failed_skills"`
	CommonMistakes   []ActionConfusion `json:"common_mistakes"`
	ProblematicSteps []ProblematicStep `json:"problematic_steps"`
}

// swagger:model TrainingPlan
type TrainingPlan struct {
	UserID            string             `json:"user_id"`
	CurrentPhase      Phase              `json:"current_phase"`
	GeneratedAt       time.Time          `json:"generated_at"`
	RecommendedSkills []RecommendedSkill `json:"recommended_skills"`
	FocusSkills       []FocusSkill       `json:"focus_skills"`
	SessionGoals      []string           `json:"session_goals"`
	Notes             []string           `json:"notes"`
	GlobalInsights    GlobalInsights     `json:"global_insights"`
	YourCommonErrors  []CommonError      `json:"your_common_errors"`
	SkillComparisons  []SkillComparison  `json:"skill_comparisons"`
}
