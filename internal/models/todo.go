package models

import (
	"time"
)

// Todo is a single owner-scoped list entry. The title is stored in the
// legacy "text" column.
type Todo struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string    `json:"title" gorm:"column:text;not null"`
	Description string    `json:"description" gorm:"not null"`
	Status      string    `json:"status" gorm:"not null"`
	StartAt     time.Time `json:"startAt" gorm:"column:start_at;not null"`
	EndAt       time.Time `json:"endAt" gorm:"column:end_at;not null"`
	UserID      string    `json:"userId" gorm:"column:user_id;type:text;not null;index"`
	User        *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Todo) TableName() string {
	return "todos"
}

// TodoPatch carries the fields of a partial update. Nil fields are left
// untouched.
type TodoPatch struct {
	Title       *string
	Description *string
	Status      *string
	StartAt     *time.Time
	EndAt       *time.Time
}

// Columns returns the column assignments for the supplied fields.
func (p TodoPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 5)
	if p.Title != nil {
		cols["text"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.StartAt != nil {
		cols["start_at"] = *p.StartAt
	}
	if p.EndAt != nil {
		cols["end_at"] = *p.EndAt
	}
	return cols
}

func (p TodoPatch) IsEmpty() bool {
	return len(p.Columns()) == 0
}
