package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mysteryforum/forum-api/internal/models"
)

// CommentRepository persists comments as flat rows linked by parent id.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id uint) (models.Comment, error)
	FindByIDForUpdate(ctx context.Context, id uint) (models.Comment, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]models.Comment, error)
	IDsByPosts(ctx context.Context, postIDs []uint) ([]uint, error)
	IDsByAuthor(ctx context.Context, authorID uint) ([]uint, error)
	SubtreeIDs(ctx context.Context, rootID uint) ([]uint, error)
	AdjustVoteCounts(ctx context.Context, id uint, upDelta, downDelta int) error
	SetBestAnswer(ctx context.Context, ids []uint, value bool) error
	ClearBestAnswers(ctx context.Context, postID uint) error
	DeleteByIDs(ctx context.Context, ids []uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository constructs a GORM-backed comment repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) FindByID(ctx context.Context, id uint) (models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func (r *commentRepository) FindByIDForUpdate(ctx context.Context, id uint) (models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&comment, id).Error; err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func (r *commentRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Comment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) IDsByPosts(ctx context.Context, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id IN ?", postIDs).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *commentRepository) IDsByAuthor(ctx context.Context, authorID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("author_id = ?", authorID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// SubtreeIDs returns rootID followed by every reply beneath it, walking the
// parent links one level per query.
func (r *commentRepository) SubtreeIDs(ctx context.Context, rootID uint) ([]uint, error) {
	result := []uint{rootID}
	frontier := []uint{rootID}
	seen := map[uint]struct{}{rootID: {}}

	for len(frontier) > 0 {
		var children []uint
		if err := r.db.WithContext(ctx).
			Model(&models.Comment{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &children).Error; err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, id := range children {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			result = append(result, id)
			frontier = append(frontier, id)
		}
	}

	return result, nil
}

func (r *commentRepository) AdjustVoteCounts(ctx context.Context, id uint, upDelta, downDelta int) error {
	return adjustVoteCounts(r.db.WithContext(ctx).Model(&models.Comment{}), id, upDelta, downDelta)
}

func (r *commentRepository) SetBestAnswer(ctx context.Context, ids []uint, value bool) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id IN ?", ids).
		Update("is_best_answer", value).Error
}

func (r *commentRepository) ClearBestAnswers(ctx context.Context, postID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ? AND is_best_answer = ?", postID, true).
		Update("is_best_answer", false).Error
}

// DeleteByIDs removes the comments. Replies of a deleted comment must be part
// of ids, otherwise their parent reference dangles.
func (r *commentRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Comment{}).Error
}
