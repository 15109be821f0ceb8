package onboarding

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Response is one completed questionnaire. Rows are append-only and not tied
// to a user account.
type Response struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID     string    `gorm:"type:varchar(64);not null;index" json:"session_id"`
	UserType      string    `gorm:"type:varchar(32);not null" json:"user_type"`
	Purpose       string    `gorm:"type:varchar(32);not null" json:"purpose"`
	Source        string    `gorm:"type:varchar(32);not null" json:"source"`
	AccountMethod *string   `gorm:"type:varchar(16)" json:"account_method,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (Response) TableName() string { return "onboarding_responses" }

func (r *Response) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Record is what the client submits at the end of the questionnaire.
type Record struct {
	SessionID     string  `json:"session_id"`
	UserType      string  `json:"user_type"`
	Purpose       string  `json:"purpose"`
	Source        string  `json:"source"`
	AccountMethod *string `json:"account_method"`
}

// Result mirrors what the client expects back from a save: either the stored
// row or a message, never both.
type Result struct {
	Success bool      `json:"success"`
	Data    *Response `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`

	Cause error `json:"-"`
}

// Answer options offered by the questionnaire.
var (
	UserTypes = []string{"student", "entry-level", "mid-level", "senior", "career-switcher", "international"}
	Purposes  = []string{"create-new", "tailor-job", "improve-existing", "cover-letter", "ats-score"}
	Sources   = []string{"tiktok", "instagram", "google", "reddit", "discord", "friend", "other"}

	AccountMethods = []string{"google", "email"}
)

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
