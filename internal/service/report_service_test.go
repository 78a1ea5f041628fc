package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/repository"
)

func newReportServiceForTest(store repository.Store, deliverer NotificationDeliverer, blobs BlobStore) *reportService {
	svc := NewReportService(store, NewFanout(testLogger()), deliverer, blobs, testValidator(), testLogger()).(*reportService)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func openReport(t *testing.T, db *gorm.DB, reporterID uint, targetType models.ReportTargetType, targetID uint) models.Report {
	t.Helper()
	report := models.Report{ReporterID: reporterID, TargetType: targetType, TargetID: targetID, Reason: models.ReportReasonSpam, Status: models.ReportStatusOpen}
	require.NoError(t, db.Create(&report).Error)
	return report
}

func exists(t *testing.T, db *gorm.DB, model interface{}, id uint) bool {
	t.Helper()
	err := db.First(model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestSubmitReportNotifiesAdmins(t *testing.T) {
	db := setupServiceDB(t)
	reporter := createUser(t, db, "reporter", models.RoleUser)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	reportingAdmin := createUser(t, db, "admin2", models.RoleAdmin)
	author := createUser(t, db, "author", models.RoleUser)
	post := createPost(t, db, author.ID)
	deliverer := &recordingDeliverer{}
	svc := newReportServiceForTest(repository.NewStore(db), deliverer, nil)
	ctx := context.Background()

	resp, err := svc.Submit(ctx, reporter.ID, dto.ReportSubmitRequest{TargetType: "post", TargetID: post.ID, Reason: "spam", Notes: "<i>ads</i> everywhere"})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusOpen, resp.Status)
	require.Equal(t, "ads everywhere", resp.Notes)
	require.Len(t, notificationsFor(t, db, admin.ID), 1)
	require.Len(t, notificationsFor(t, db, reportingAdmin.ID), 1)

	_, err = svc.Submit(ctx, reportingAdmin.ID, dto.ReportSubmitRequest{TargetType: "PROFILE", TargetID: author.ID, Reason: "HARASSMENT"})
	require.NoError(t, err)
	require.Len(t, notificationsFor(t, db, admin.ID), 2)
	require.Len(t, notificationsFor(t, db, reportingAdmin.ID), 1)
	require.Equal(t, 3, deliverer.count())

	_, err = svc.Submit(ctx, reporter.ID, dto.ReportSubmitRequest{TargetType: "COMMENT", TargetID: 404, Reason: "SPAM"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Submit(ctx, reporter.ID, dto.ReportSubmitRequest{TargetType: "POST", TargetID: post.ID, Reason: "BORING"})
	require.Error(t, err)
}

func TestResolveReportRemovesSoleContributingComment(t *testing.T) {
	db := setupServiceDB(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	postAuthor := createUser(t, db, "owner", models.RoleUser)
	commenter := createUser(t, db, "commenter", models.RoleUser)
	reporter := createUser(t, db, "reporter", models.RoleUser)

	post := models.Post{ID: 7, Title: "Green glass insulator?", AuthorID: postAuthor.ID}
	require.NoError(t, db.Create(&post).Error)
	comment := models.Comment{ID: 42, PostID: 7, AuthorID: commenter.ID, Content: "Buy cheap watches", CommentType: models.CommentTypeSuggestion}
	require.NoError(t, db.Create(&comment).Error)
	require.NoError(t, db.Create(&models.Notification{UserID: postAuthor.ID, ActorID: &commenter.ID, PostID: &post.ID, CommentID: &comment.ID, Kind: models.NotificationDirect, Type: models.NotificationComment, Message: messageComment}).Error)
	require.NoError(t, db.Create(&models.Vote{SubjectType: models.SubjectComment, SubjectID: 42, UserID: reporter.ID, Direction: models.VoteDown}).Error)
	require.NoError(t, db.Create(&models.MediaFile{CommentID: &comment.ID, FileName: "watch.jpg", PublicID: "forum/watch"}).Error)

	store := repository.NewStore(db)
	_, err := newResolutionServiceForTest(store, &recordingDeliverer{}).Resolve(context.Background(), 7, postAuthor.ID, dto.ResolvePostRequest{
		ResolutionDescription:  "Pressed glass insulator",
		ContributingCommentIDs: []uint{42},
	})
	require.NoError(t, err)
	require.True(t, reloadPost(t, db, 7).Solved)

	r1 := openReport(t, db, reporter.ID, models.ReportTargetComment, 42)
	blobs := &recordingBlobs{}
	svc := newReportServiceForTest(store, &recordingDeliverer{}, blobs)

	resp, err := svc.Resolve(context.Background(), r1.ID, ActivityActor{ID: admin.ID, Role: "admin"}, dto.ReportResolveRequest{
		Action:        "RESOLVED",
		RemoveContent: true,
		BanUser:       true,
	})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusResolved, resp.Status)
	require.True(t, resp.RemoveContent)
	require.True(t, resp.BanUser)
	require.False(t, resp.SendWarning)

	require.False(t, exists(t, db, &models.Comment{}, 42))
	stored := reloadPost(t, db, 7)
	require.False(t, stored.Solved)
	require.Nil(t, stored.ResolutionDescription)
	require.Nil(t, stored.ResolvedAt)

	var banned models.User
	require.NoError(t, db.First(&banned, commenter.ID).Error)
	require.Equal(t, models.RoleBanned, banned.Role)

	var leftover int64
	require.NoError(t, db.Model(&models.Notification{}).Where("comment_id = ?", 42).Count(&leftover).Error)
	require.Zero(t, leftover)
	require.NoError(t, db.Model(&models.Vote{}).Where("subject_type = ? AND subject_id = ?", models.SubjectComment, 42).Count(&leftover).Error)
	require.Zero(t, leftover)
	require.Equal(t, []string{"forum/watch"}, blobs.destroyed)

	var audit models.ActivityLog
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?", "report", r1.ID).First(&audit).Error)
	require.Equal(t, "report.resolved", audit.Action)
	require.Equal(t, true, audit.Metadata["ban_user"])
}

func TestContributingCommentRemovalKeepsResolutionUntilEmpty(t *testing.T) {
	db := setupServiceDB(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	author := createUser(t, db, "author", models.RoleUser)
	helper := createUser(t, db, "helper", models.RoleUser)
	post := createPost(t, db, author.ID)
	c1 := createComment(t, db, post.ID, helper.ID, nil)
	c2 := createComment(t, db, post.ID, helper.ID, nil)
	store := repository.NewStore(db)
	ctx := context.Background()

	_, err := newResolutionServiceForTest(store, &recordingDeliverer{}).Resolve(ctx, post.ID, author.ID, dto.ResolvePostRequest{
		ResolutionDescription:  "Type case drawer pull",
		ContributingCommentIDs: []uint{c1.ID, c2.ID},
	})
	require.NoError(t, err)

	svc := newReportServiceForTest(store, &recordingDeliverer{}, nil)
	actor := ActivityActor{ID: admin.ID, Role: "admin"}

	first := openReport(t, db, admin.ID, models.ReportTargetComment, c1.ID)
	_, err = svc.Resolve(ctx, first.ID, actor, dto.ReportResolveRequest{Action: "resolved", RemoveContent: true})
	require.NoError(t, err)

	stored := reloadPost(t, db, post.ID)
	require.True(t, stored.Solved)
	require.NotNil(t, stored.ResolutionDescription)
	ids, err := store.Repositories().Posts.ContributingCommentIDs(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{c2.ID}, ids)

	second := openReport(t, db, admin.ID, models.ReportTargetComment, c2.ID)
	_, err = svc.Resolve(ctx, second.ID, actor, dto.ReportResolveRequest{Action: "RESOLVED", RemoveContent: true})
	require.NoError(t, err)

	stored = reloadPost(t, db, post.ID)
	require.False(t, stored.Solved)
	require.Nil(t, stored.ResolutionDescription)
	require.Nil(t, stored.ResolvedAt)
}

func TestResolveReportRemovesReplySubtree(t *testing.T) {
	db := setupServiceDB(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	author := createUser(t, db, "author", models.RoleUser)
	post := createPost(t, db, author.ID)
	root := createComment(t, db, post.ID, author.ID, nil)
	reply := createComment(t, db, post.ID, admin.ID, &root.ID)
	nested := createComment(t, db, post.ID, author.ID, &reply.ID)
	sibling := createComment(t, db, post.ID, author.ID, nil)
	report := openReport(t, db, admin.ID, models.ReportTargetComment, root.ID)
	svc := newReportServiceForTest(repository.NewStore(db), &recordingDeliverer{}, nil)

	_, err := svc.Resolve(context.Background(), report.ID, ActivityActor{ID: admin.ID}, dto.ReportResolveRequest{Action: "RESOLVED", RemoveContent: true})
	require.NoError(t, err)

	require.False(t, exists(t, db, &models.Comment{}, root.ID))
	require.False(t, exists(t, db, &models.Comment{}, reply.ID))
	require.False(t, exists(t, db, &models.Comment{}, nested.ID))
	require.True(t, exists(t, db, &models.Comment{}, sibling.ID))
}

func TestResolveReportWarningAndNotes(t *testing.T) {
	db := setupServiceDB(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	author := createUser(t, db, "author", models.RoleUser)
	post := createPost(t, db, author.ID)
	report := models.Report{ReporterID: admin.ID, TargetType: models.ReportTargetPost, TargetID: post.ID, Reason: models.ReportReasonOffTopic, Notes: "first look", Status: models.ReportStatusOpen}
	require.NoError(t, db.Create(&report).Error)
	deliverer := &recordingDeliverer{}
	svc := newReportServiceForTest(repository.NewStore(db), deliverer, nil)
	ctx := context.Background()

	resp, err := svc.Resolve(ctx, report.ID, ActivityActor{ID: admin.ID, Role: "admin"}, dto.ReportResolveRequest{Action: "DISMISSED", Note: "borderline", SendWarning: true})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusDismissed, resp.Status)
	require.Equal(t, "first look\n[RESOLUTION] borderline", resp.Notes)
	require.NotNil(t, resp.ResolvedAt)
	require.Equal(t, admin.ID, *resp.ResolvedByID)

	warnings := notificationsFor(t, db, author.ID)
	require.Len(t, warnings, 1)
	require.Equal(t, models.NotificationReport, warnings[0].Type)
	require.Equal(t, messageWarning, warnings[0].Message)
	require.Equal(t, post.ID, *warnings[0].PostID)
	require.Equal(t, 1, deliverer.count())
	require.True(t, exists(t, db, &models.Post{}, post.ID))

	// A closed report can be resolved again and re-runs its actions.
	_, err = svc.Resolve(ctx, report.ID, ActivityActor{ID: admin.ID, Role: "admin"}, dto.ReportResolveRequest{Action: "RESOLVED", SendWarning: true})
	require.NoError(t, err)
	require.Len(t, notificationsFor(t, db, author.ID), 2)
}

func TestResolveReportValidatesActionBeforeLookup(t *testing.T) {
	db := setupServiceDB(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	svc := newReportServiceForTest(repository.NewStore(db), &recordingDeliverer{}, nil)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, 999, ActivityActor{ID: admin.ID}, dto.ReportResolveRequest{Action: "ESCALATE"})
	require.ErrorIs(t, err, ErrInvalidReportAction)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Resolve(ctx, 999, ActivityActor{ID: admin.ID}, dto.ReportResolveRequest{Action: "RESOLVED"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveProfileReportDeletesUserAndSkipsBan(t *testing.T) {
	db := setupServiceDB(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	troll := createUser(t, db, "troll", models.RoleUser)
	victim := createUser(t, db, "victim", models.RoleUser)
	trollPost := createPost(t, db, troll.ID)
	victimPost := createPost(t, db, victim.ID)
	trollComment := createComment(t, db, victimPost.ID, troll.ID, nil)
	victimReply := createComment(t, db, trollPost.ID, victim.ID, nil)
	follow(t, db, victim.ID, troll.ID)
	watch(t, db, troll.ID, victimPost.ID)
	store := repository.NewStore(db)
	ctx := context.Background()

	votes := newVoteServiceForTest(store, &recordingDeliverer{})
	_, err := votes.Toggle(ctx, models.SubjectPost, victimPost.ID, troll.ID, models.VoteDown)
	require.NoError(t, err)
	_, err = votes.Toggle(ctx, models.SubjectPost, trollPost.ID, victim.ID, models.VoteUp)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Notification{UserID: victim.ID, ActorID: &troll.ID, Kind: models.NotificationDirect, Type: models.NotificationUpvote, Message: messageUpvote}).Error)

	report := openReport(t, db, victim.ID, models.ReportTargetProfile, troll.ID)
	svc := newReportServiceForTest(store, &recordingDeliverer{}, nil)
	resp, err := svc.Resolve(ctx, report.ID, ActivityActor{ID: admin.ID, Role: "admin"}, dto.ReportResolveRequest{
		Action:        "RESOLVED",
		RemoveContent: true,
		BanUser:       true,
		SendWarning:   true,
	})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusResolved, resp.Status)

	require.False(t, exists(t, db, &models.User{}, troll.ID))
	require.False(t, exists(t, db, &models.Post{}, trollPost.ID))
	require.False(t, exists(t, db, &models.Comment{}, trollComment.ID))
	require.False(t, exists(t, db, &models.Comment{}, victimReply.ID))
	require.True(t, exists(t, db, &models.Post{}, victimPost.ID))
	require.Zero(t, reloadPost(t, db, victimPost.ID).DownvotesCount)

	var edges int64
	require.NoError(t, db.Model(&models.UserFollow{}).Count(&edges).Error)
	require.Zero(t, edges)
	require.NoError(t, db.Model(&models.PostWatch{}).Count(&edges).Error)
	require.Zero(t, edges)

	remaining := notificationsFor(t, db, victim.ID)
	require.Len(t, remaining, 1)
	require.Nil(t, remaining[0].ActorID)

	var kept models.Report
	require.NoError(t, db.First(&kept, report.ID).Error)
	require.Equal(t, models.ReportStatusResolved, kept.Status)
}

func TestListReportsFiltersByStatus(t *testing.T) {
	db := setupServiceDB(t)
	reporter := createUser(t, db, "reporter", models.RoleUser)
	for i := 0; i < 3; i++ {
		openReport(t, db, reporter.ID, models.ReportTargetProfile, reporter.ID)
	}
	closed := openReport(t, db, reporter.ID, models.ReportTargetPost, 5)
	require.NoError(t, db.Model(&closed).Update("status", models.ReportStatusDismissed).Error)
	svc := newReportServiceForTest(repository.NewStore(db), &recordingDeliverer{}, nil)
	ctx := context.Background()

	page, err := svc.List(ctx, dto.ReportListRequest{Page: 1, PageSize: 2, Status: "open"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, int64(3), page.Pagination.TotalItems)
	require.Equal(t, 2, page.Pagination.TotalPages)

	_, err = svc.List(ctx, dto.ReportListRequest{Status: "pending"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	byTarget, err := svc.ListByTarget(ctx, "profile", reporter.ID)
	require.NoError(t, err)
	require.Len(t, byTarget, 3)
}

func TestResolveReportRollsBackWhenAuditFails(t *testing.T) {
	db := setupServiceDB(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	author := createUser(t, db, "author", models.RoleUser)
	commenter := createUser(t, db, "commenter", models.RoleUser)
	post := createPost(t, db, author.ID)
	comment := createComment(t, db, post.ID, commenter.ID, nil)
	require.NoError(t, db.Create(&models.MediaFile{CommentID: &comment.ID, FileName: "ad.png", PublicID: "forum/ad"}).Error)
	report := openReport(t, db, author.ID, models.ReportTargetComment, comment.ID)

	deliverer := &recordingDeliverer{}
	blobs := &recordingBlobs{}
	svc := newReportServiceForTest(auditFailingStore{Store: repository.NewStore(db)}, deliverer, blobs)

	_, err := svc.Resolve(context.Background(), report.ID, ActivityActor{ID: admin.ID, Role: "admin"}, dto.ReportResolveRequest{
		Action:        "RESOLVED",
		RemoveContent: true,
		BanUser:       true,
		SendWarning:   true,
	})
	require.ErrorIs(t, err, errAuditUnavailable)

	var stored models.Report
	require.NoError(t, db.First(&stored, report.ID).Error)
	require.Equal(t, models.ReportStatusOpen, stored.Status)
	require.Nil(t, stored.ResolvedAt)
	require.True(t, exists(t, db, &models.Comment{}, comment.ID))

	var user models.User
	require.NoError(t, db.First(&user, commenter.ID).Error)
	require.Equal(t, models.RoleUser, user.Role)
	require.Empty(t, notificationsFor(t, db, commenter.ID))
	require.Empty(t, blobs.destroyed)
	require.Zero(t, deliverer.count())
}

func TestResolvePostReportBansAndWarnsCapturedOwner(t *testing.T) {
	db := setupServiceDB(t)
	admin := createUser(t, db, "admin", models.RoleAdmin)
	author := createUser(t, db, "author", models.RoleUser)
	reporter := createUser(t, db, "reporter", models.RoleUser)
	post := createPost(t, db, author.ID)
	object := models.MysteryObject{PostID: post.ID, Name: "counterfeit coin"}
	require.NoError(t, db.Create(&object).Error)
	part := models.MysteryObject{PostID: post.ID, ParentID: &object.ID, Name: "stamped edge"}
	require.NoError(t, db.Create(&part).Error)
	require.NoError(t, db.Create(&models.MediaFile{MysteryObjectID: &object.ID, FileName: "coin.jpg", PublicID: "forum/coin"}).Error)
	require.NoError(t, db.Create(&models.MediaFile{MysteryObjectID: &part.ID, FileName: "edge.jpg", PublicID: "forum/edge"}).Error)
	comment := createComment(t, db, post.ID, reporter.ID, nil)
	report := openReport(t, db, reporter.ID, models.ReportTargetPost, post.ID)

	deliverer := &recordingDeliverer{}
	blobs := &recordingBlobs{}
	svc := newReportServiceForTest(repository.NewStore(db), deliverer, blobs)

	resp, err := svc.Resolve(context.Background(), report.ID, ActivityActor{ID: admin.ID, Role: "admin"}, dto.ReportResolveRequest{
		Action:        "RESOLVED",
		RemoveContent: true,
		BanUser:       true,
		SendWarning:   true,
	})
	require.NoError(t, err)
	require.Equal(t, models.ReportStatusResolved, resp.Status)

	require.False(t, exists(t, db, &models.Post{}, post.ID))
	require.False(t, exists(t, db, &models.Comment{}, comment.ID))
	require.False(t, exists(t, db, &models.MysteryObject{}, object.ID))
	var media int64
	require.NoError(t, db.Model(&models.MediaFile{}).Count(&media).Error)
	require.Zero(t, media)
	require.ElementsMatch(t, []string{"forum/coin", "forum/edge"}, blobs.destroyed)

	var owner models.User
	require.NoError(t, db.First(&owner, author.ID).Error)
	require.Equal(t, models.RoleBanned, owner.Role)

	warnings := notificationsFor(t, db, author.ID)
	require.Len(t, warnings, 1)
	require.Equal(t, messageWarning, warnings[0].Message)
	require.Nil(t, warnings[0].PostID)
	require.Nil(t, warnings[0].CommentID)
	require.Equal(t, 1, deliverer.count())
}

func TestCommentReportWarningReferences(t *testing.T) {
	cases := []struct {
		name          string
		removeContent bool
		wantComment   bool
	}{
		{name: "comment kept", removeContent: false, wantComment: true},
		{name: "comment removed", removeContent: true, wantComment: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := setupServiceDB(t)
			admin := createUser(t, db, "admin", models.RoleAdmin)
			author := createUser(t, db, "author", models.RoleUser)
			commenter := createUser(t, db, "commenter", models.RoleUser)
			post := createPost(t, db, author.ID)
			comment := createComment(t, db, post.ID, commenter.ID, nil)
			report := openReport(t, db, author.ID, models.ReportTargetComment, comment.ID)
			svc := newReportServiceForTest(repository.NewStore(db), &recordingDeliverer{}, nil)

			_, err := svc.Resolve(context.Background(), report.ID, ActivityActor{ID: admin.ID, Role: "admin"}, dto.ReportResolveRequest{
				Action:        "RESOLVED",
				RemoveContent: tc.removeContent,
				SendWarning:   true,
			})
			require.NoError(t, err)

			warnings := notificationsFor(t, db, commenter.ID)
			require.Len(t, warnings, 1)
			require.NotNil(t, warnings[0].PostID)
			require.Equal(t, post.ID, *warnings[0].PostID)
			if tc.wantComment {
				require.NotNil(t, warnings[0].CommentID)
				require.Equal(t, comment.ID, *warnings[0].CommentID)
			} else {
				require.Nil(t, warnings[0].CommentID)
			}
		})
	}
}
