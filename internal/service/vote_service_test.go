package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/repository"
)

func newVoteServiceForTest(store repository.Store, deliverer NotificationDeliverer) VoteService {
	return NewVoteService(store, NewFanout(testLogger()), deliverer, testLogger())
}

func TestVoteToggleAddsSwitchesAndRemoves(t *testing.T) {
	db := setupServiceDB(t)
	author := createUser(t, db, "author", models.RoleUser)
	voter := createUser(t, db, "voter", models.RoleUser)
	post := createPost(t, db, author.ID)
	svc := newVoteServiceForTest(repository.NewStore(db), &recordingDeliverer{})
	ctx := context.Background()

	resp, err := svc.Toggle(ctx, models.SubjectPost, post.ID, voter.ID, models.VoteUp)
	require.NoError(t, err)
	require.Equal(t, 1, resp.Upvotes)
	require.Equal(t, 0, resp.Downvotes)
	require.True(t, resp.UserUpvoted)

	resp, err = svc.Toggle(ctx, models.SubjectPost, post.ID, voter.ID, models.VoteDown)
	require.NoError(t, err)
	require.Equal(t, 0, resp.Upvotes)
	require.Equal(t, 1, resp.Downvotes)
	require.False(t, resp.UserUpvoted)
	require.True(t, resp.UserDownvoted)

	stored := reloadPost(t, db, post.ID)
	require.Equal(t, 0, stored.UpvotesCount)
	require.Equal(t, 1, stored.DownvotesCount)

	resp, err = svc.Toggle(ctx, models.SubjectPost, post.ID, voter.ID, models.VoteDown)
	require.NoError(t, err)
	require.Equal(t, 0, resp.Downvotes)
	require.False(t, resp.UserDownvoted)

	var votes int64
	require.NoError(t, db.Model(&models.Vote{}).Count(&votes).Error)
	require.Zero(t, votes)
}

func TestVoteCountersMatchMembership(t *testing.T) {
	db := setupServiceDB(t)
	author := createUser(t, db, "author", models.RoleUser)
	post := createPost(t, db, author.ID)
	comment := createComment(t, db, post.ID, author.ID, nil)
	store := repository.NewStore(db)
	svc := newVoteServiceForTest(store, &recordingDeliverer{})
	ctx := context.Background()

	voters := []models.User{
		createUser(t, db, "v1", models.RoleUser),
		createUser(t, db, "v2", models.RoleUser),
		createUser(t, db, "v3", models.RoleUser),
	}
	sequence := []models.VoteDirection{models.VoteUp, models.VoteDown, models.VoteUp, models.VoteUp, models.VoteDown}
	for i, direction := range sequence {
		for j, voter := range voters {
			if (i+j)%2 == 0 {
				_, err := svc.Toggle(ctx, models.SubjectPost, post.ID, voter.ID, direction)
				require.NoError(t, err)
			}
			_, err := svc.Toggle(ctx, models.SubjectComment, comment.ID, voter.ID, direction.Opposite())
			require.NoError(t, err)
		}
	}

	repos := store.Repositories()
	storedPost := reloadPost(t, db, post.ID)
	ups, err := repos.Votes.CountBySubject(ctx, models.SubjectPost, post.ID, models.VoteUp)
	require.NoError(t, err)
	downs, err := repos.Votes.CountBySubject(ctx, models.SubjectPost, post.ID, models.VoteDown)
	require.NoError(t, err)
	require.Equal(t, int(ups), storedPost.UpvotesCount)
	require.Equal(t, int(downs), storedPost.DownvotesCount)

	storedComment, err := repos.Comments.FindByID(ctx, comment.ID)
	require.NoError(t, err)
	ups, err = repos.Votes.CountBySubject(ctx, models.SubjectComment, comment.ID, models.VoteUp)
	require.NoError(t, err)
	downs, err = repos.Votes.CountBySubject(ctx, models.SubjectComment, comment.ID, models.VoteDown)
	require.NoError(t, err)
	require.Equal(t, int(ups), storedComment.UpvotesCount)
	require.Equal(t, int(downs), storedComment.DownvotesCount)
}

func TestVoteOnPostFansOutToWatchers(t *testing.T) {
	db := setupServiceDB(t)
	author := createUser(t, db, "author", models.RoleUser)
	voter := createUser(t, db, "voter", models.RoleUser)
	watcher := createUser(t, db, "watcher", models.RoleUser)
	post := createPost(t, db, author.ID)
	watch(t, db, watcher.ID, post.ID)
	watch(t, db, voter.ID, post.ID)
	deliverer := &recordingDeliverer{}
	svc := newVoteServiceForTest(repository.NewStore(db), deliverer)

	_, err := svc.Toggle(context.Background(), models.SubjectPost, post.ID, voter.ID, models.VoteDown)
	require.NoError(t, err)

	for _, recipient := range []models.User{watcher, voter} {
		got := notificationsFor(t, db, recipient.ID)
		require.Len(t, got, 1)
		require.Equal(t, models.NotificationPostDownvoted, got[0].Type)
		require.Equal(t, models.NotificationFollower, got[0].Kind)
		require.Equal(t, author.ID, *got[0].ActorID)
	}
	require.Equal(t, 2, deliverer.count())

	// Removing the vote emits nothing.
	_, err = svc.Toggle(context.Background(), models.SubjectPost, post.ID, voter.ID, models.VoteDown)
	require.NoError(t, err)
	require.Len(t, notificationsFor(t, db, watcher.ID), 1)
}

func TestUpvoteOnCommentNotifiesAuthorExceptSelf(t *testing.T) {
	db := setupServiceDB(t)
	author := createUser(t, db, "author", models.RoleUser)
	voter := createUser(t, db, "voter", models.RoleUser)
	post := createPost(t, db, author.ID)
	comment := createComment(t, db, post.ID, author.ID, nil)
	svc := newVoteServiceForTest(repository.NewStore(db), &recordingDeliverer{})
	ctx := context.Background()

	_, err := svc.Toggle(ctx, models.SubjectComment, comment.ID, voter.ID, models.VoteUp)
	require.NoError(t, err)
	got := notificationsFor(t, db, author.ID)
	require.Len(t, got, 1)
	require.Equal(t, models.NotificationUpvote, got[0].Type)
	require.Equal(t, models.NotificationDirect, got[0].Kind)
	require.Equal(t, comment.ID, *got[0].CommentID)

	resp, err := svc.Toggle(ctx, models.SubjectComment, comment.ID, author.ID, models.VoteUp)
	require.NoError(t, err)
	require.Equal(t, 2, resp.Upvotes)
	require.Len(t, notificationsFor(t, db, author.ID), 1)

	_, err = svc.Toggle(ctx, models.SubjectComment, comment.ID, createUser(t, db, "critic", models.RoleUser).ID, models.VoteDown)
	require.NoError(t, err)
	require.Len(t, notificationsFor(t, db, author.ID), 1)
}

func TestVoteRejectsUnknownSubjectAndVoter(t *testing.T) {
	db := setupServiceDB(t)
	voter := createUser(t, db, "voter", models.RoleUser)
	svc := newVoteServiceForTest(repository.NewStore(db), &recordingDeliverer{})
	ctx := context.Background()

	_, err := svc.Toggle(ctx, models.SubjectPost, 999, voter.ID, models.VoteUp)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Toggle(ctx, models.SubjectPost, 1, 12345, models.VoteUp)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Toggle(ctx, models.SubjectType("PROFILE"), 1, voter.ID, models.VoteUp)
	require.ErrorIs(t, err, ErrInvalidArgument)
}
