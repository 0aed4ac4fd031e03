package model

import (
	"encoding/json"
	"time"
)

// Document 完整的持久化状态，每次修改都整体重写
type Document struct {
	Users    map[string]*User `json:"users"`
	Attempts []*Attempt       `json:"attempts"`
}

func NewDocument() *Document {
	return &Document{
		Users:    make(map[string]*User),
		Attempts: []*Attempt{},
	}
}

// Normalize 把稀疏文档留下的 nil 集合替换为空集合
func (d *Document) Normalize() {
	if d.Users == nil {
		d.Users = make(map[string]*User)
	}
	if d.Attempts == nil {
		d.Attempts = []*Attempt{}
	}
	for _, u := range d.Users {
		if u.SkillProgress == nil {
			u.SkillProgress = make(map[string]*SkillProgress)
		}
		if u.Sessions == nil {
			u.Sessions = []json.RawMessage{}
		}
		if u.CurrentPhase == "" {
			u.CurrentPhase = PhaseFoundation
		}
		for _, p := range u.SkillProgress {
			if p.StepErrors == nil {
				p.StepErrors = make(map[string][]StepErrorEntry)
			}
		}
	}
	for _, a := range d.Attempts {
		if a.StepInputs == nil {
			a.StepInputs = []InputRecord{}
		}
		if a.StepErrors == nil {
			a.StepErrors = []ErrorRecord{}
		}
	}
}

// DocumentRecord 保存序列化 Document 的数据库行，每次保存 Version 加一
type DocumentRecord struct {
	Name      string    `gorm:"primaryKey;size:64"`
	Body      []byte    `gorm:"type:longblob;not null"`
	Version   int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (DocumentRecord) TableName() string {
	return "progress_documents"
}
