// Package repository holds the public persistence contracts. Concrete
// implementations live under internal/.
package repository

import (
	"context"

	"github.com/talentdesk/backoffice/pkg/models"
)

// StaffRepo manages back-office operator accounts.
type StaffRepo interface {
	CreateStaff(ctx context.Context, s *models.Staff) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Staff, error)
	GetByEmail(ctx context.Context, email string) (*models.Staff, error)
	UpdateStaff(ctx context.Context, s *models.Staff) error
	DeleteStaff(ctx context.Context, id int64) error
}
