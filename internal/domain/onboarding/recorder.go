package onboarding

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"resumeiq-backend/internal/apperr"

	"gorm.io/gorm"
)

const DefaultListLimit = 100

// Recorder stores questionnaire answers. Failures to save are reported in the
// Result and logged; they never interrupt the client flow.
type Recorder struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateSessionID returns session_<unix millis>_<9 base36 chars>.
// It is a correlation id, not a secret.
func (r *Recorder) GenerateSessionID() string {
	var b strings.Builder
	b.WriteString("session_")
	b.WriteString(strconv.FormatInt(r.now().UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < 9; i++ {
		b.WriteByte(base36[rand.Intn(len(base36))])
	}
	return b.String()
}

func normalize(rec Record) (Record, error) {
	rec.SessionID = strings.TrimSpace(rec.SessionID)
	rec.UserType = strings.TrimSpace(rec.UserType)
	rec.Purpose = strings.TrimSpace(rec.Purpose)
	rec.Source = strings.TrimSpace(rec.Source)

	if rec.SessionID == "" {
		return rec, apperr.Invalid("session id is required")
	}
	if !oneOf(rec.UserType, UserTypes) {
		return rec, apperr.Invalid("unknown user type %q", rec.UserType)
	}
	if !oneOf(rec.Purpose, Purposes) {
		return rec, apperr.Invalid("unknown purpose %q", rec.Purpose)
	}
	if !oneOf(rec.Source, Sources) {
		return rec, apperr.Invalid("unknown source %q", rec.Source)
	}
	if rec.AccountMethod != nil {
		m := strings.TrimSpace(*rec.AccountMethod)
		switch {
		case m == "":
			rec.AccountMethod = nil
		case !oneOf(m, AccountMethods):
			return rec, apperr.Invalid("unknown account method %q", m)
		default:
			rec.AccountMethod = &m
		}
	}
	return rec, nil
}

// Save appends one response row.
func (r *Recorder) Save(ctx context.Context, rec Record) Result {
	rec, err := normalize(rec)
	if err != nil {
		log.Printf("⚠️ onboarding answers rejected: %v", err)
		return Result{Error: err.Error(), Cause: err}
	}

	row := Response{
		SessionID:     rec.SessionID,
		UserType:      rec.UserType,
		Purpose:       rec.Purpose,
		Source:        rec.Source,
		AccountMethod: rec.AccountMethod,
		CreatedAt:     r.now(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		err = apperr.FromStore("save onboarding", err)
		log.Printf("⚠️ onboarding save for %s failed: %v", rec.SessionID, err)
		return Result{Error: err.Error(), Cause: err}
	}
	return Result{Success: true, Data: &row}
}

// Get returns the newest response for a session, or nil when there is none.
func (r *Recorder) Get(ctx context.Context, sessionID string) (*Response, error) {
	var row Response
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromStore("get onboarding "+sessionID, err)
	}
	return &row, nil
}

// List returns up to limit responses, newest first. A non-positive limit
// means DefaultListLimit.
func (r *Recorder) List(ctx context.Context, limit int) ([]Response, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var rows []Response
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, apperr.FromStore("list onboarding", err)
	}
	return rows, nil
}
