package adminrequest

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type Repository interface {
	CreateIfNoActive(ctx context.Context, req *AdminRequest) error
	GetByID(ctx context.Context, id int64) (*AdminRequest, error)
	GetLatestByUser(ctx context.Context, userID int64) (*AdminRequest, error)
	List(ctx context.Context, status Status, limit, offset int) ([]AdminRequest, int64, error)
	// Transition applies updates only if the request is currently in one of
	// from. It returns ErrInvalidTransition when no row matched.
	Transition(ctx context.Context, id int64, from []Status, updates map[string]any) error
	// MarkEmailVerified applies updates only to an active request whose email
	// is still unverified. It returns ErrEmailAlreadyVerified when another
	// caller got there first.
	MarkEmailVerified(ctx context.Context, id int64, updates map[string]any) error
	AddDocument(ctx context.Context, doc *Document) error
}

type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

var activeStatuses = []Status{StatusPending, StatusUnderReview}

func (r *GormRepository) CreateIfNoActive(ctx context.Context, req *AdminRequest) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&AdminRequest{}).
			Where("user_id = ? AND status IN ?", req.UserID, activeStatuses).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrRequestAlreadyActive
		}
		return tx.Create(req).Error
	})
	if isUniqueViolation(err) {
		return ErrRequestAlreadyActive
	}
	return err
}

// isUniqueViolation matches gorm's translated postgres error and the raw
// sqlite constraint message (the pure-go driver is not translated).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLSTATE 23505")
}

func (r *GormRepository) GetByID(ctx context.Context, id int64) (*AdminRequest, error) {
	var req AdminRequest
	err := r.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *GormRepository) GetLatestByUser(ctx context.Context, userID int64) (*AdminRequest, error) {
	var req AdminRequest
	err := r.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("user_id = ?", userID).
		Order("submission_date DESC").
		Order("id DESC").
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *GormRepository) List(ctx context.Context, status Status, limit, offset int) ([]AdminRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&AdminRequest{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []AdminRequest
	if err := q.Order("submission_date DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *GormRepository) Transition(ctx context.Context, id int64, from []Status, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&AdminRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *GormRepository) MarkEmailVerified(ctx context.Context, id int64, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&AdminRequest{}).
		Where("id = ? AND status IN ? AND email_verified = ?", id, activeStatuses, false).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	req, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.EmailVerified {
		return ErrEmailAlreadyVerified
	}
	return ErrInvalidTransition
}

// AddDocument stores the document row and bumps the request's counter in one
// transaction.
func (r *GormRepository) AddDocument(ctx context.Context, doc *Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		return tx.Model(&AdminRequest{}).
			Where("id = ?", doc.RequestID).
			UpdateColumn("documents_uploaded", gorm.Expr("documents_uploaded + ?", 1)).Error
	})
}
