package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mysteryforum/forum-api/internal/models"
)

// PostRepository persists posts, their mystery object arena and resolution state.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post, objects []models.MysteryObject) error
	FindByID(ctx context.Context, id uint) (models.Post, error)
	FindByIDForUpdate(ctx context.Context, id uint) (models.Post, error)
	ListIDsByAuthor(ctx context.Context, authorID uint) ([]uint, error)
	ListMysteryObjects(ctx context.Context, postID uint) ([]models.MysteryObject, error)
	MysteryObjectIDs(ctx context.Context, postIDs []uint) ([]uint, error)
	AdjustVoteCounts(ctx context.Context, id uint, upDelta, downDelta int) error
	MarkResolved(ctx context.Context, id uint, description string, resolvedAt time.Time) error
	ClearResolution(ctx context.Context, id uint) error
	ContributingCommentIDs(ctx context.Context, postID uint) ([]uint, error)
	ReplaceContributingComments(ctx context.Context, postID uint, commentIDs []uint) error
	PostsContributedBy(ctx context.Context, commentIDs []uint) ([]uint, error)
	RemoveContributingComments(ctx context.Context, commentIDs []uint) error
	DeleteByIDs(ctx context.Context, ids []uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository constructs a GORM-backed post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create stores the post and its mystery object arena. Object ParentID values
// index into objects (zero-based) and are rewritten to database ids.
func (r *postRepository) Create(ctx context.Context, post *models.Post, objects []models.MysteryObject) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}

		ids := make([]uint, len(objects))
		for i := range objects {
			object := objects[i]
			object.PostID = post.ID
			if object.ParentID != nil {
				parent := ids[*object.ParentID]
				object.ParentID = &parent
			}
			if err := tx.Create(&object).Error; err != nil {
				return err
			}
			ids[i] = object.ID
			objects[i] = object
		}
		return nil
	})
}

func (r *postRepository) FindByID(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func (r *postRepository) FindByIDForUpdate(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&post, id).Error; err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func (r *postRepository) ListIDsByAuthor(ctx context.Context, authorID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("author_id = ?", authorID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *postRepository) ListMysteryObjects(ctx context.Context, postID uint) ([]models.MysteryObject, error) {
	var objects []models.MysteryObject
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&objects).Error; err != nil {
		return nil, err
	}
	return objects, nil
}

func (r *postRepository) MysteryObjectIDs(ctx context.Context, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.MysteryObject{}).
		Where("post_id IN ?", postIDs).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *postRepository) AdjustVoteCounts(ctx context.Context, id uint, upDelta, downDelta int) error {
	return adjustVoteCounts(r.db.WithContext(ctx).Model(&models.Post{}), id, upDelta, downDelta)
}

func (r *postRepository) MarkResolved(ctx context.Context, id uint, description string, resolvedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"solved":                 true,
			"resolution_description": description,
			"resolved_at":            resolvedAt,
		}).Error
}

func (r *postRepository) ClearResolution(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"solved":                 false,
			"resolution_description": nil,
			"resolved_at":            nil,
		}).Error
}

func (r *postRepository) ContributingCommentIDs(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.PostContributingComment{}).
		Where("post_id = ?", postID).
		Order("comment_id ASC").
		Pluck("comment_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *postRepository) ReplaceContributingComments(ctx context.Context, postID uint, commentIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("post_id = ?", postID).Delete(&models.PostContributingComment{}).Error; err != nil {
		return err
	}
	if len(commentIDs) == 0 {
		return nil
	}

	links := make([]models.PostContributingComment, 0, len(commentIDs))
	for _, commentID := range commentIDs {
		links = append(links, models.PostContributingComment{PostID: postID, CommentID: commentID})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
}

func (r *postRepository) PostsContributedBy(ctx context.Context, commentIDs []uint) ([]uint, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.PostContributingComment{}).
		Where("comment_id IN ?", commentIDs).
		Distinct().
		Order("post_id ASC").
		Pluck("post_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *postRepository) RemoveContributingComments(ctx context.Context, commentIDs []uint) error {
	if len(commentIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Delete(&models.PostContributingComment{}).Error
}

// DeleteByIDs removes posts with their mystery objects, watch edges and
// resolution links. Comments, votes and media are removed by the caller.
func (r *postRepository) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)
	if err := db.Where("post_id IN ?", ids).Delete(&models.PostContributingComment{}).Error; err != nil {
		return err
	}
	if err := db.Where("post_id IN ?", ids).Delete(&models.PostWatch{}).Error; err != nil {
		return err
	}
	if err := db.Where("post_id IN ?", ids).Delete(&models.MysteryObject{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", ids).Delete(&models.Post{}).Error
}

func adjustVoteCounts(query *gorm.DB, id uint, upDelta, downDelta int) error {
	updates := map[string]interface{}{}
	if upDelta != 0 {
		updates["upvotes_count"] = gorm.Expr("upvotes_count + ?", upDelta)
	}
	if downDelta != 0 {
		updates["downvotes_count"] = gorm.Expr("downvotes_count + ?", downDelta)
	}
	if len(updates) == 0 {
		return nil
	}

	result := query.Where("id = ?", id).UpdateColumns(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
