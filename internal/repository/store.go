package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
)

// Store groups the repositories that share one database handle.
type Store struct {
	db        *gorm.DB
	Equipment *EquipmentRepository
	Tasks     *TaskRepository
	Logs      *MaintenanceLogRepository
	Users     *UserRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Equipment: NewEquipmentRepository(db),
		Tasks:     NewTaskRepository(db),
		Logs:      NewMaintenanceLogRepository(db),
		Users:     NewUserRepository(db),
	}
}

// Transaction runs fn against a Store bound to one database transaction.
// Returning an error from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the shared error kinds.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(apperr.KindNotFound, op, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrCheckConstraintViolated),
		strings.Contains(err.Error(), "constraint failed"):
		return apperr.Wrap(apperr.KindValidationFailed, op, err)
	default:
		return apperr.Wrap(apperr.KindInternal, op, err)
	}
}

func notFoundIfNone(res *gorm.DB, op string) error {
	if res.Error != nil {
		return translate(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Wrap(apperr.KindNotFound, op, gorm.ErrRecordNotFound)
	}
	return nil
}
