package service

import (
	"fmt"
	"sort"

	"skilltrack_backend/internal/model"
)

const (
	phaseSkillThreshold = 0.7
	phaseSetFraction    = 0.6

	priorityNotAttempted = 3
	priorityLow          = 2
	priorityImprovable   = 1

	lowRateCutoff        = 0.5
	improvableRateCutoff = 0.8
)

var (
	beginnerSkills = []string{
		"beginner-wheeling-forward",
		"beginner-wheeling-backward",
		"beginner-turn-on-spot",
		"beginner-turn-forward",
		"beginner-turn-backward",
	}

	intermediateSkills = []string{
		"intermediate-ramps-up",
		"intermediate-ramps-down",
		"intermediate-popping-casters",
		"intermediate-obstacles-thresholds",
	}

	phaseLevels = map[model.Phase][]string{
		model.PhaseFoundation: {"basic", "beginner"},
		model.PhaseMobility:   {"intermediate"},
		model.PhaseAdvanced:   {"advanced", "emergency"},
	}
)

// setCompleted 至少60%的技能达到成功率阈值
func setCompleted(progress map[string]*model.SkillProgress, skills []string) bool {
	done := 0
	for _, id := range skills {
		if p, ok := progress[id]; ok && p.SuccessRate >= phaseSkillThreshold {
			done++
		}
	}
	return float64(done) >= float64(len(skills))*phaseSetFraction
}

// nextPhase 按 Foundation -> Mobility -> Advanced 前进一步，Advanced 为终点
func nextPhase(user *model.User) model.Phase {
	switch user.CurrentPhase {
	case model.PhaseFoundation, "":
		if setCompleted(user.SkillProgress, beginnerSkills) {
			return model.PhaseMobility
		}
		return model.PhaseFoundation
	case model.PhaseMobility:
		if setCompleted(user.SkillProgress, intermediateSkills) {
			return model.PhaseAdvanced
		}
	}
	return user.CurrentPhase
}

func levelsFor(phase model.Phase) []string {
	if levels, ok := phaseLevels[phase]; ok {
		return levels
	}
	return phaseLevels[model.PhaseFoundation]
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// recommendSkills 对用户阶段内的技能排序。
// 成功率达到80%的技能不推荐，相同时保持目录顺序
func recommendSkills(user *model.User, catalog []model.SkillCatalogEntry) []model.RecommendedSkill {
	levels := levelsFor(user.CurrentPhase)
	out := []model.RecommendedSkill{}

	for _, skill := range catalog {
		if !contains(levels, skill.Level) {
			continue
		}

		attempts, rate := 0, 0.0
		if p, ok := user.SkillProgress[skill.SkillID]; ok {
			attempts, rate = p.Attempts, p.SuccessRate
		}

		var priority int
		var reason string
		switch {
		case attempts == 0:
			priority, reason = priorityNotAttempted, "Not attempted yet"
		case rate < lowRateCutoff:
			priority, reason = priorityLow, fmt.Sprintf("Low success rate: %.0f%%", rate*100)
		case rate < improvableRateCutoff:
			priority, reason = priorityImprovable, fmt.Sprintf("Can be improved: %.0f%%", rate*100)
		default:
			continue
		}

		out = append(out, model.RecommendedSkill{
			SkillID:     skill.SkillID,
			Title:       skill.Title,
			Level:       skill.Level,
			Attempts:    attempts,
			SuccessRate: rate,
			Priority:    priority,
			Reason:      reason,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}
