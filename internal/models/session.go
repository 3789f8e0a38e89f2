package models

import (
	"time"
)

const CredentialProvider = "credential"

type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	Token     string    `json:"-" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	UserID    string    `json:"userId" gorm:"type:text;not null;index"`
	User      *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Session) TableName() string {
	return "session"
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Account links a user to a login provider. Email and password sign-in uses
// the credential provider with a bcrypt hash in Password.
type Account struct {
	ID         string    `json:"id" gorm:"primaryKey;type:text"`
	AccountID  string    `json:"accountId" gorm:"not null"`
	ProviderID string    `json:"providerId" gorm:"not null"`
	UserID     string    `json:"userId" gorm:"type:text;not null;index"`
	User       *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Password   *string   `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Account) TableName() string {
	return "account"
}

// All lists the persisted models in dependency order.
func All() []interface{} {
	return []interface{}{&User{}, &Session{}, &Account{}, &Todo{}}
}
