package service

import (
	"strconv"
	"time"

	"skilltrack_backend/internal/model"
)

// applyCompletion 把已完成的尝试合并进用户的技能进度并追加到全局尝试列表。
// 文档中不存在的用户会被重新创建，
// 尝试不会脱离进度记录
func applyCompletion(doc *model.Document, a *model.Attempt, now time.Time) {
	user, ok := doc.Users[a.UserID]
	if !ok {
		user = model.NewUser(a.UserID, a.StartTime)
		doc.Users[a.UserID] = user
	}

	progress, ok := user.SkillProgress[a.SkillID]
	if !ok {
		progress = model.NewSkillProgress(a.SkillID)
		user.SkillProgress[a.SkillID] = progress
	}

	progress.RecordOutcome(a.Succeeded())
	if a.EndTime != nil {
		end := *a.EndTime
		progress.LastAttempt = &end
	}

	for _, e := range a.StepErrors {
		key := strconv.Itoa(e.StepNumber)
		progress.StepErrors[key] = append(progress.StepErrors[key], model.StepErrorEntry{
			ErrorType:      e.ErrorType,
			ExpectedAction: e.ExpectedAction,
			ActualAction:   e.ActualAction,
			Timestamp:      e.Timestamp,
		})
	}

	user.UpdatedAt = &now
	doc.Attempts = append(doc.Attempts, a)
}
