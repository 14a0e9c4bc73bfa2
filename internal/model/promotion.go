package model

import (
	"strings"
	"time"
)

// Promotion is a percentage discount with a validity window.
type Promotion struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Discount    int       `json:"discount"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
}

// Active reports whether now falls inside the validity window.
func (p Promotion) Active(now time.Time) bool {
	return !now.Before(p.StartDate) && now.Before(p.EndDate)
}

// Validate checks the fields required by the promotion forms.
func (p Promotion) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Title) == "" {
		missing = append(missing, "title")
	}
	if p.StartDate.IsZero() {
		missing = append(missing, "start date")
	}
	if p.EndDate.IsZero() {
		missing = append(missing, "end date")
	}
	if len(missing) > 0 {
		return NewDomainError(ErrCodeMissingField, "Missing required fields: "+strings.Join(missing, ", "))
	}
	if p.Discount < 1 || p.Discount > 100 {
		return NewDomainError(ErrCodeInvalidPromotion, "Discount must be between 1 and 100")
	}
	if !p.EndDate.After(p.StartDate) {
		return NewDomainError(ErrCodeInvalidPromotion, "End date must be after start date")
	}
	return nil
}
