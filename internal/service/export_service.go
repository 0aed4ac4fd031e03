package service

import (
	"context"
	"fmt"
	"io"

	"skilltrack_backend/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary     = "Summary"
	SheetSkills      = "Skills"
	SheetProblematic = "Problematic Steps"
	SheetConfusion   = "Action Confusion"
)

// ExportService 把全局错误统计导出为 xlsx
type ExportService struct {
	Analytics *AnalyticsService
}

func NewExportService(analytics *AnalyticsService) *ExportService {
	return &ExportService{Analytics: analytics}
}

func (s *ExportService) WriteGlobalErrorsXLSX(ctx context.Context, w io.Writer) error {
	stats, err := s.Analytics.GetGlobalErrorStats(ctx)
	if err != nil {
		return err
	}

	f, err := buildGlobalErrorsWorkbook(stats)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func buildGlobalErrorsWorkbook(stats *model.GlobalErrorStats) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetSummary)
	for _, name := range []string{SheetSkills, SheetProblematic, SheetConfusion} {
		f.NewSheet(name)
	}

	summary := [][]interface{}{
		{"Generated at", stats.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Total attempts", stats.TotalAttempts},
		{"Total users", stats.TotalUsers},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return nil, err
	}

	skills := [][]interface{}{{"Skill", "Attempts", "Failed", "Failure rate", "Errors", "Most problematic step"}}
	for _, sk := range stats.SkillSummary {
		step := ""
		if sk.MostProblematicStep != nil {
			step = *sk.MostProblematicStep
		}
		skills = append(skills, []interface{}{sk.SkillID, sk.TotalAttempts, sk.FailedAttempts, sk.FailureRate, sk.TotalErrors, step})
	}
	if err := writeRows(f, SheetSkills, skills); err != nil {
		return nil, err
	}

	steps := [][]interface{}{{"Skill", "Step", "Errors", "Most common error"}}
	for _, p := range stats.ProblematicSteps {
		steps = append(steps, []interface{}{p.SkillID, p.StepNumber, p.ErrorCount, p.MostCommonError})
	}
	if err := writeRows(f, SheetProblematic, steps); err != nil {
		return nil, err
	}

	confusion := [][]interface{}{{"Expected", "Actual", "Count", "Description"}}
	for _, c := range stats.ActionConfusion {
		confusion = append(confusion, []interface{}{c.Expected, c.Actual, c.Count, c.Description})
	}
	if err := writeRows(f, SheetConfusion, confusion); err != nil {
		return nil, err
	}

	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
