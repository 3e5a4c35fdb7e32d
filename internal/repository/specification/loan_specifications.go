package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"ai-lending-be/internal/entity"
)

type ByLoanID struct {
	LoanID uuid.UUID
}

func (s ByLoanID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("loan_id = ?", s.LoanID)
}

type ByStatus struct {
	Status entity.LoanStatus
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", string(s.Status))
}

// ByStatuses matches loans in any of the given states.
type ByStatuses struct {
	Statuses []entity.LoanStatus
}

func (s ByStatuses) Apply(db *gorm.DB) *gorm.DB {
	values := make([]string, len(s.Statuses))
	for i, st := range s.Statuses {
		values[i] = string(st)
	}
	return db.Where("status IN ?", values)
}
