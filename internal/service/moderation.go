package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/repository"
)

// removal summarises what a cascading delete touched.
type removal struct {
	blobs      []string
	unresolved []uint
	comments   int
	posts      int
}

func (r *removal) merge(other removal) {
	r.blobs = append(r.blobs, other.blobs...)
	r.unresolved = append(r.unresolved, other.unresolved...)
	r.comments += other.comments
	r.posts += other.posts
}

// removeComment deletes the comment together with every reply beneath it.
func removeComment(ctx context.Context, repos repository.Repositories, commentID uint) (removal, error) {
	ids, err := repos.Comments.SubtreeIDs(ctx, commentID)
	if err != nil {
		return removal{}, err
	}
	return removeComments(ctx, repos, ids)
}

// removeComments deletes a closed set of comments: every reply of a comment in
// ids must itself be in ids.
func removeComments(ctx context.Context, repos repository.Repositories, ids []uint) (removal, error) {
	if len(ids) == 0 {
		return removal{}, nil
	}

	unresolved, err := releaseContributingComments(ctx, repos, ids)
	if err != nil {
		return removal{}, err
	}
	if err := repos.Notifications.DeleteByComments(ctx, ids); err != nil {
		return removal{}, err
	}
	if err := repos.Votes.DeleteBySubjects(ctx, models.SubjectComment, ids); err != nil {
		return removal{}, err
	}

	media, err := repos.Media.ListByComments(ctx, ids)
	if err != nil {
		return removal{}, err
	}
	blobs, err := deleteMedia(ctx, repos, media)
	if err != nil {
		return removal{}, err
	}

	if err := repos.Comments.DeleteByIDs(ctx, ids); err != nil {
		return removal{}, err
	}

	return removal{blobs: blobs, unresolved: unresolved, comments: len(ids)}, nil
}

// removePosts deletes posts with their comments, votes, media, edges and the
// notifications that reference them.
func removePosts(ctx context.Context, repos repository.Repositories, postIDs []uint) (removal, error) {
	if len(postIDs) == 0 {
		return removal{}, nil
	}

	commentIDs, err := repos.Comments.IDsByPosts(ctx, postIDs)
	if err != nil {
		return removal{}, err
	}
	result, err := removeComments(ctx, repos, commentIDs)
	if err != nil {
		return removal{}, err
	}
	result.unresolved = excludeIDs(result.unresolved, postIDs)

	if err := repos.Notifications.DeleteByPosts(ctx, postIDs); err != nil {
		return removal{}, err
	}
	if err := repos.Votes.DeleteBySubjects(ctx, models.SubjectPost, postIDs); err != nil {
		return removal{}, err
	}

	objectIDs, err := repos.Posts.MysteryObjectIDs(ctx, postIDs)
	if err != nil {
		return removal{}, err
	}
	media, err := repos.Media.ListByMysteryObjects(ctx, objectIDs)
	if err != nil {
		return removal{}, err
	}
	blobs, err := deleteMedia(ctx, repos, media)
	if err != nil {
		return removal{}, err
	}
	result.blobs = append(result.blobs, blobs...)

	if err := repos.Posts.DeleteByIDs(ctx, postIDs); err != nil {
		return removal{}, err
	}
	result.posts = len(postIDs)
	return result, nil
}

// removeUser deletes the user and everything that references it. Reports the
// user filed are kept for audit.
func removeUser(ctx context.Context, repos repository.Repositories, userID uint) (removal, error) {
	var result removal

	commentIDs, err := repos.Comments.IDsByAuthor(ctx, userID)
	if err != nil {
		return removal{}, err
	}
	closed, err := commentClosure(ctx, repos, commentIDs)
	if err != nil {
		return removal{}, err
	}
	comments, err := removeComments(ctx, repos, closed)
	if err != nil {
		return removal{}, err
	}
	result.merge(comments)

	postIDs, err := repos.Posts.ListIDsByAuthor(ctx, userID)
	if err != nil {
		return removal{}, err
	}
	posts, err := removePosts(ctx, repos, postIDs)
	if err != nil {
		return removal{}, err
	}
	result.merge(posts)
	result.unresolved = excludeIDs(result.unresolved, postIDs)

	// Votes on surviving content still count towards its counters.
	tallies, err := repos.Votes.TallyByUser(ctx, userID)
	if err != nil {
		return removal{}, err
	}
	for _, tally := range tallies {
		up, down := deltaFor(tally.Direction, -tally.Total)
		if tally.SubjectType == models.SubjectPost {
			err = repos.Posts.AdjustVoteCounts(ctx, tally.SubjectID, up, down)
		} else {
			err = repos.Comments.AdjustVoteCounts(ctx, tally.SubjectID, up, down)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return removal{}, err
		}
	}
	if err := repos.Votes.DeleteByUser(ctx, userID); err != nil {
		return removal{}, err
	}

	if err := repos.Follows.DeleteByUser(ctx, userID); err != nil {
		return removal{}, err
	}
	if err := repos.Notifications.DeleteByRecipient(ctx, userID); err != nil {
		return removal{}, err
	}
	if err := repos.Notifications.ClearActor(ctx, userID); err != nil {
		return removal{}, err
	}
	if err := repos.Users.Delete(ctx, userID); err != nil {
		return removal{}, notFound("user", userID, err)
	}

	return result, nil
}

func commentClosure(ctx context.Context, repos repository.Repositories, roots []uint) ([]uint, error) {
	seen := make(map[uint]struct{}, len(roots))
	var closed []uint
	for _, root := range roots {
		if _, ok := seen[root]; ok {
			continue
		}
		subtree, err := repos.Comments.SubtreeIDs(ctx, root)
		if err != nil {
			return nil, fmt.Errorf("expand replies of comment %d: %w", root, err)
		}
		for _, id := range subtree {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			closed = append(closed, id)
		}
	}
	return closed, nil
}

func deleteMedia(ctx context.Context, repos repository.Repositories, media []models.MediaFile) ([]string, error) {
	if len(media) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(media))
	blobs := make([]string, 0, len(media))
	for _, file := range media {
		ids = append(ids, file.ID)
		if file.PublicID != "" {
			blobs = append(blobs, file.PublicID)
		}
	}
	if err := repos.Media.DeleteByIDs(ctx, ids); err != nil {
		return nil, err
	}
	return blobs, nil
}

func excludeIDs(ids, excluded []uint) []uint {
	if len(ids) == 0 || len(excluded) == 0 {
		return ids
	}
	skip := make(map[uint]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	out := ids[:0]
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
