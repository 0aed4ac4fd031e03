package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"skilltrack_backend/internal/model"
	"skilltrack_backend/internal/util"
)

const (
	// MaxProblematicItems problematic_steps 和 action_confusion 的条数上限
	MaxProblematicItems = 20
	// ComparisonThreshold 与全局成功率相差在此范围内视为 "average"
	ComparisonThreshold = 0.05

	topErrorTypes   = 3
	topWrongActions = 3
	unknownError    = "unknown"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func errorTypeOrUnknown(t string) string {
	if t == "" {
		return unknownError
	}
	return t
}

// sortedStepKeys 步骤键按数字排序，非数字键按字符串排序
func sortedStepKeys(m map[string][]model.StepErrorEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		if (errA == nil) != (errB == nil) {
			return errA == nil
		}
		return keys[i] < keys[j]
	})
	return keys
}

func sortedSkillIDs(m map[string]*model.SkillProgress) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func skillStats(user *model.User, skillID string) (*model.SkillStats, error) {
	p, ok := user.SkillProgress[skillID]
	if !ok {
		return nil, util.ErrSkillProgressNotFound
	}

	byStep := make(map[string]int, len(p.StepErrors))
	for step, errs := range p.StepErrors {
		byStep[step] = len(errs)
	}
	return &model.SkillStats{
		SkillID:            skillID,
		Attempts:           p.Attempts,
		SuccessfulAttempts: p.SuccessfulAttempts,
		SuccessRate:        p.SuccessRate,
		TotalErrors:        p.TotalErrors(),
		LastAttempt:        p.LastAttempt,
		ErrorByStep:        byStep,
	}, nil
}

// commonErrors 用户错误按 (技能, 步骤, 错误类型) 分组，
// 每组第一条错误提供 expected 和 actual 动作
func commonErrors(user *model.User, skillID string) []model.CommonError {
	skills := sortedSkillIDs(user.SkillProgress)
	if skillID != "" {
		skills = []string{skillID}
	}

	type bucketKey struct {
		skill, step, errType string
	}
	index := make(map[bucketKey]int)
	out := []model.CommonError{}

	for _, sid := range skills {
		p, ok := user.SkillProgress[sid]
		if !ok {
			continue
		}
		for _, step := range sortedStepKeys(p.StepErrors) {
			stepNumber, _ := strconv.Atoi(step)
			for _, e := range p.StepErrors[step] {
				errType := errorTypeOrUnknown(e.ErrorType)
				k := bucketKey{sid, step, errType}
				i, seen := index[k]
				if !seen {
					i = len(out)
					index[k] = i
					out = append(out, model.CommonError{
						SkillID:        sid,
						StepNumber:     stepNumber,
						ErrorType:      errType,
						ExpectedAction: e.ExpectedAction,
						ActualAction:   e.ActualAction,
					})
				}
				out[i].Count++
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// weakSteps 按错误数排序，相同时步骤号小的在前
func weakSteps(stats *model.SkillStats) []model.WeakStep {
	out := make([]model.WeakStep, 0, len(stats.ErrorByStep))
	for step, n := range stats.ErrorByStep {
		num, _ := strconv.Atoi(step)
		out = append(out, model.WeakStep{StepNumber: num, ErrorCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ErrorCount != out[j].ErrorCount {
			return out[i].ErrorCount > out[j].ErrorCount
		}
		return out[i].StepNumber < out[j].StepNumber
	})
	return out
}

type stepBucket struct {
	step       int
	errors     int
	typeOrder  []string
	typeCounts map[string]int
}

func (b *stepBucket) add(errType string) {
	b.errors++
	if _, ok := b.typeCounts[errType]; !ok {
		b.typeOrder = append(b.typeOrder, errType)
	}
	b.typeCounts[errType]++
}

// mostCommonType 返回次数最多的类型，相同时取最先出现的
func (b *stepBucket) mostCommonType() string {
	best, bestN := "", 0
	for _, t := range b.typeOrder {
		if n := b.typeCounts[t]; n > bestN {
			best, bestN = t, n
		}
	}
	return best
}

type skillBucket struct {
	id        string
	attempts  int
	failed    int
	errors    int
	steps     []*stepBucket
	stepIndex map[int]*stepBucket
}

func (s *skillBucket) step(n int) *stepBucket {
	b, ok := s.stepIndex[n]
	if !ok {
		b = &stepBucket{step: n, typeCounts: make(map[string]int)}
		s.stepIndex[n] = b
		s.steps = append(s.steps, b)
	}
	return b
}

// globalErrorStats 扫描所有已持久化的尝试。
// 稳定排序之前按尝试列表中首次出现的顺序排列
func globalErrorStats(doc *model.Document, now time.Time) *model.GlobalErrorStats {
	users := make(map[string]struct{})
	var skills []*skillBucket
	skillIndex := make(map[string]*skillBucket)

	type confusionKey struct{ expected, actual string }
	confusion := []model.ActionConfusion{}
	confusionIndex := make(map[confusionKey]int)

	for _, a := range doc.Attempts {
		users[a.UserID] = struct{}{}

		sb, ok := skillIndex[a.SkillID]
		if !ok {
			sb = &skillBucket{id: a.SkillID, stepIndex: make(map[int]*stepBucket)}
			skillIndex[a.SkillID] = sb
			skills = append(skills, sb)
		}
		sb.attempts++
		if !a.Succeeded() {
			sb.failed++
		}

		for _, e := range a.StepErrors {
			sb.errors++
			sb.step(e.StepNumber).add(errorTypeOrUnknown(e.ErrorType))

			if e.ExpectedAction == "" || e.ActualAction == "" || e.ExpectedAction == e.ActualAction {
				continue
			}
			k := confusionKey{e.ExpectedAction, e.ActualAction}
			i, seen := confusionIndex[k]
			if !seen {
				i = len(confusion)
				confusionIndex[k] = i
				confusion = append(confusion, model.ActionConfusion{
					Expected:    e.ExpectedAction,
					Actual:      e.ActualAction,
					Description: fmt.Sprintf("Users press %s instead of %s", e.ActualAction, e.ExpectedAction),
				})
			}
			confusion[i].Count++
		}
	}

	summary := make([]model.SkillSummary, 0, len(skills))
	problematic := []model.ProblematicStep{}
	for _, sb := range skills {
		var worst *string
		maxErrors := 0
		for _, st := range sb.steps {
			if st.errors > maxErrors {
				maxErrors = st.errors
				key := strconv.Itoa(st.step)
				worst = &key
			}
			problematic = append(problematic, model.ProblematicStep{
				SkillID:         sb.id,
				StepNumber:      st.step,
				ErrorCount:      st.errors,
				MostCommonError: st.mostCommonType(),
			})
		}

		summary = append(summary, model.SkillSummary{
			SkillID:             sb.id,
			TotalAttempts:       sb.attempts,
			FailedAttempts:      sb.failed,
			FailureRate:         round2(float64(sb.failed) / float64(sb.attempts)),
			TotalErrors:         sb.errors,
			MostProblematicStep: worst,
		})
	}

	sort.SliceStable(summary, func(i, j int) bool { return summary[i].FailureRate > summary[j].FailureRate })
	sort.SliceStable(problematic, func(i, j int) bool { return problematic[i].ErrorCount > problematic[j].ErrorCount })
	sort.SliceStable(confusion, func(i, j int) bool { return confusion[i].Count > confusion[j].Count })

	if len(problematic) > MaxProblematicItems {
		problematic = problematic[:MaxProblematicItems]
	}
	if len(confusion) > MaxProblematicItems {
		confusion = confusion[:MaxProblematicItems]
	}

	return &model.GlobalErrorStats{
		TotalAttempts:    len(doc.Attempts),
		TotalUsers:       len(users),
		SkillSummary:     summary,
		ProblematicSteps: problematic,
		ActionConfusion:  confusion,
		GeneratedAt:      now,
	}
}

// skillErrorStats 按步骤拆分某技能的错误。error_rate 以该技能的尝试数为分母，
// 一次尝试中同一步骤多次出错时会大于1
func skillErrorStats(doc *model.Document, skillID string, now time.Time) (*model.SkillErrorStats, error) {
	type actionKey struct{ expected, actual string }
	type stepAgg struct {
		stepBucket
		actionOrder  []actionKey
		actionCounts map[actionKey]int
	}

	attempts := 0
	var steps []*stepAgg
	stepIndex := make(map[int]*stepAgg)

	for _, a := range doc.Attempts {
		if a.SkillID != skillID {
			continue
		}
		attempts++
		for _, e := range a.StepErrors {
			st, ok := stepIndex[e.StepNumber]
			if !ok {
				st = &stepAgg{
					stepBucket:   stepBucket{step: e.StepNumber, typeCounts: make(map[string]int)},
					actionCounts: make(map[actionKey]int),
				}
				stepIndex[e.StepNumber] = st
				steps = append(steps, st)
			}
			st.add(errorTypeOrUnknown(e.ErrorType))

			k := actionKey{e.ExpectedAction, e.ActualAction}
			if _, seen := st.actionCounts[k]; !seen {
				st.actionOrder = append(st.actionOrder, k)
			}
			st.actionCounts[k]++
		}
	}

	if attempts == 0 {
		return nil, util.ErrNoSkillAttempts
	}

	rates := make([]model.StepErrorRate, 0, len(steps))
	for _, st := range steps {
		types := make([]model.ErrorTypeCount, 0, len(st.typeOrder))
		for _, t := range st.typeOrder {
			types = append(types, model.ErrorTypeCount{Type: t, Count: st.typeCounts[t]})
		}
		sort.SliceStable(types, func(i, j int) bool { return types[i].Count > types[j].Count })
		if len(types) > topErrorTypes {
			types = types[:topErrorTypes]
		}

		actions := make([]model.WrongActionCount, 0, len(st.actionOrder))
		for _, k := range st.actionOrder {
			actions = append(actions, model.WrongActionCount{Expected: k.expected, Actual: k.actual, Count: st.actionCounts[k]})
		}
		sort.SliceStable(actions, func(i, j int) bool { return actions[i].Count > actions[j].Count })
		if len(actions) > topWrongActions {
			actions = actions[:topWrongActions]
		}

		rates = append(rates, model.StepErrorRate{
			StepNumber:         st.step,
			ErrorRate:          float64(st.errors) / float64(attempts),
			TotalErrors:        st.errors,
			CommonErrorTypes:   types,
			CommonWrongActions: actions,
		})
	}

	sort.SliceStable(rates, func(i, j int) bool { return rates[i].ErrorRate > rates[j].ErrorRate })

	stats := &model.SkillErrorStats{
		SkillID:        skillID,
		TotalAttempts:  attempts,
		StepErrorRates: rates,
		GeneratedAt:    now,
	}
	if len(rates) > 0 {
		hardest := rates[0]
		stats.MostDifficultStep = &hardest
	}
	return stats, nil
}

// skillComparisons 用户每个已尝试技能的成功率与该技能全部尝试
// （包括用户自己的）的成功率对比
func skillComparisons(doc *model.Document, user *model.User) []model.SkillComparison {
	type tally struct{ total, success int }
	global := make(map[string]*tally)
	for _, a := range doc.Attempts {
		t, ok := global[a.SkillID]
		if !ok {
			t = &tally{}
			global[a.SkillID] = t
		}
		t.total++
		if a.Succeeded() {
			t.success++
		}
	}

	out := make([]model.SkillComparison, 0, len(user.SkillProgress))
	for _, sid := range sortedSkillIDs(user.SkillProgress) {
		yours := user.SkillProgress[sid].SuccessRate
		globalRate := 0.0
		if t, ok := global[sid]; ok && t.total > 0 {
			globalRate = float64(t.success) / float64(t.total)
		}
		out = append(out, model.SkillComparison{
			SkillID:           sid,
			YourSuccessRate:   round2(yours),
			GlobalSuccessRate: round2(globalRate),
			Comparison:        classify(yours, globalRate),
		})
	}
	return out
}

func classify(yours, global float64) model.ComparisonResult {
	switch {
	case math.Abs(yours-global) < ComparisonThreshold:
		return model.ComparisonAverage
	case yours > global:
		return model.ComparisonAboveAverage
	default:
		return model.ComparisonBelowAverage
	}
}
