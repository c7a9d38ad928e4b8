package repository

import (
	"context"
	"errors"
	"time"

	"clanhub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JoinRequestReview records the reviewer decision applied by Transition.
type JoinRequestReview struct {
	ReviewerID              uint
	AllowAnotherApplication bool
	At                      time.Time
}

// JoinRequestRepository defines the interface for clan join request data access
type JoinRequestRepository interface {
	Create(ctx context.Context, req *models.ClanJoinRequest) error
	GetByID(ctx context.Context, id uint) (*models.ClanJoinRequest, error)
	// LatestJoinRequest returns the most recent request of the pair, nil when none exists.
	LatestJoinRequest(ctx context.Context, userID, clanID uint) (*models.ClanJoinRequest, error)
	// FindSubmitted returns the pair's active request, nil when none exists.
	FindSubmitted(ctx context.Context, userID, clanID uint) (*models.ClanJoinRequest, error)
	// Transition moves a request from one status to another, stamping the review.
	Transition(ctx context.Context, id uint, from, to models.JoinRequestStatus, review JoinRequestReview) error
	// Unblock re-allows applications on a blocking denied request.
	Unblock(ctx context.Context, id, actorID uint) error
	// DeleteSubmitted removes a request that is still awaiting review.
	DeleteSubmitted(ctx context.Context, id uint) error
	ListPending(ctx context.Context, clanID uint) ([]models.ClanJoinRequest, error)
	// ListBlocked returns blocking denials that are still the latest request of their pair.
	ListBlocked(ctx context.Context, clanID uint) ([]models.ClanJoinRequest, error)
}

type joinRequestRepository struct {
	db *gorm.DB
}

// NewJoinRequestRepository creates a new join request repository
func NewJoinRequestRepository(db *gorm.DB) JoinRequestRepository {
	return &joinRequestRepository{db: db}
}

func (r *joinRequestRepository) Create(ctx context.Context, req *models.ClanJoinRequest) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error)
}

func (r *joinRequestRepository) GetByID(ctx context.Context, id uint) (*models.ClanJoinRequest, error) {
	var req models.ClanJoinRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, notFoundOr(err, "Join request", id)
	}
	return &req, nil
}

func (r *joinRequestRepository) LatestJoinRequest(ctx context.Context, userID, clanID uint) (*models.ClanJoinRequest, error) {
	return r.first(r.db.WithContext(ctx).
		Where("user_id = ? AND clan_id = ?", userID, clanID).
		Order("created_at DESC, id DESC"))
}

func (r *joinRequestRepository) FindSubmitted(ctx context.Context, userID, clanID uint) (*models.ClanJoinRequest, error) {
	return r.first(r.db.WithContext(ctx).
		Where("user_id = ? AND clan_id = ? AND status = ?", userID, clanID, models.JoinRequestStatusSubmitted).
		Order("created_at DESC, id DESC"))
}

func (r *joinRequestRepository) first(query *gorm.DB) (*models.ClanJoinRequest, error) {
	var req models.ClanJoinRequest
	err := query.First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *joinRequestRepository) Transition(ctx context.Context, id uint, from, to models.JoinRequestStatus, review JoinRequestReview) error {
	return guarded(r.db.WithContext(ctx).Model(&models.ClanJoinRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":                    to,
			"allow_another_application": review.AllowAnotherApplication,
			"reviewed_by_user_id":       review.ReviewerID,
			"reviewed_at":               review.At,
			"updated_at":                review.At,
		}))
}

func (r *joinRequestRepository) Unblock(ctx context.Context, id, actorID uint) error {
	return guarded(r.db.WithContext(ctx).Model(&models.ClanJoinRequest{}).
		Where("id = ? AND status = ? AND allow_another_application = ?", id, models.JoinRequestStatusDenied, false).
		Updates(map[string]interface{}{
			"allow_another_application": true,
			"reviewed_by_user_id":       actorID,
			"updated_at":                time.Now(),
		}))
}

func (r *joinRequestRepository) DeleteSubmitted(ctx context.Context, id uint) error {
	return guarded(r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.JoinRequestStatusSubmitted).
		Delete(&models.ClanJoinRequest{}))
}

func (r *joinRequestRepository) ListPending(ctx context.Context, clanID uint) ([]models.ClanJoinRequest, error) {
	var reqs []models.ClanJoinRequest
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("clan_id = ? AND status = ?", clanID, models.JoinRequestStatusSubmitted).
		Order("created_at ASC, id ASC").
		Find(&reqs).Error; err != nil {
		return nil, translate(err)
	}
	return reqs, nil
}

func (r *joinRequestRepository) ListBlocked(ctx context.Context, clanID uint) ([]models.ClanJoinRequest, error) {
	var reqs []models.ClanJoinRequest
	if err := r.db.WithContext(ctx).
		Preload("User").
		Table("clan_join_requests AS r").
		Where("r.clan_id = ? AND r.status = ? AND r.allow_another_application = ?", clanID, models.JoinRequestStatusDenied, false).
		Where(`NOT EXISTS (
			SELECT 1 FROM clan_join_requests n
			WHERE n.user_id = r.user_id AND n.clan_id = r.clan_id
			AND (n.created_at > r.created_at OR (n.created_at = r.created_at AND n.id > r.id))
		)`).
		Order("r.updated_at DESC, r.id DESC").
		Find(&reqs).Error; err != nil {
		return nil, translate(err)
	}
	return reqs, nil
}
