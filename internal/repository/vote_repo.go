package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mysteryforum/forum-api/internal/models"
)

// VoteTally aggregates one voter's votes by subject and direction.
type VoteTally struct {
	SubjectType models.SubjectType
	SubjectID   uint
	Direction   models.VoteDirection
	Total       int
}

// VoteRepository persists per-voter vote membership.
type VoteRepository interface {
	Find(ctx context.Context, subjectType models.SubjectType, subjectID, userID uint) (models.Vote, error)
	Create(ctx context.Context, vote *models.Vote) error
	UpdateDirection(ctx context.Context, id uint, direction models.VoteDirection) error
	Delete(ctx context.Context, id uint) error
	CountBySubject(ctx context.Context, subjectType models.SubjectType, subjectID uint, direction models.VoteDirection) (int64, error)
	TallyByUser(ctx context.Context, userID uint) ([]VoteTally, error)
	DirectionsForUser(ctx context.Context, subjectType models.SubjectType, subjectIDs []uint, userID uint) (map[uint]models.VoteDirection, error)
	DeleteBySubjects(ctx context.Context, subjectType models.SubjectType, subjectIDs []uint) error
	DeleteByUser(ctx context.Context, userID uint) error
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository constructs a GORM-backed vote repository.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Find(ctx context.Context, subjectType models.SubjectType, subjectID, userID uint) (models.Vote, error) {
	var vote models.Vote
	if err := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ? AND user_id = ?", subjectType, subjectID, userID).
		First(&vote).Error; err != nil {
		return models.Vote{}, err
	}
	return vote, nil
}

func (r *voteRepository) Create(ctx context.Context, vote *models.Vote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *voteRepository) UpdateDirection(ctx context.Context, id uint, direction models.VoteDirection) error {
	return r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("id = ?", id).
		Update("direction", direction).Error
}

func (r *voteRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Vote{}, id).Error
}

func (r *voteRepository) CountBySubject(ctx context.Context, subjectType models.SubjectType, subjectID uint, direction models.VoteDirection) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("subject_type = ? AND subject_id = ? AND direction = ?", subjectType, subjectID, direction).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *voteRepository) TallyByUser(ctx context.Context, userID uint) ([]VoteTally, error) {
	var tallies []VoteTally
	if err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("subject_type, subject_id, direction, COUNT(*) AS total").
		Where("user_id = ?", userID).
		Group("subject_type, subject_id, direction").
		Scan(&tallies).Error; err != nil {
		return nil, err
	}
	return tallies, nil
}

func (r *voteRepository) DirectionsForUser(ctx context.Context, subjectType models.SubjectType, subjectIDs []uint, userID uint) (map[uint]models.VoteDirection, error) {
	directions := make(map[uint]models.VoteDirection, len(subjectIDs))
	if len(subjectIDs) == 0 || userID == 0 {
		return directions, nil
	}

	var votes []models.Vote
	if err := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id IN ? AND user_id = ?", subjectType, subjectIDs, userID).
		Find(&votes).Error; err != nil {
		return nil, err
	}
	for _, vote := range votes {
		directions[vote.SubjectID] = vote.Direction
	}
	return directions, nil
}

func (r *voteRepository) DeleteBySubjects(ctx context.Context, subjectType models.SubjectType, subjectIDs []uint) error {
	if len(subjectIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id IN ?", subjectType, subjectIDs).
		Delete(&models.Vote{}).Error
}

func (r *voteRepository) DeleteByUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Vote{}).Error
}
