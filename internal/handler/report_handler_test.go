package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/handler"
	"github.com/mysteryforum/forum-api/internal/models"
	"github.com/mysteryforum/forum-api/internal/service"
)

type stubReportService struct {
	resolved     dto.ReportResponse
	resolveErr   error
	lastActor    service.ActivityActor
	lastResolve  dto.ReportResolveRequest
	lastReporter uint
	listResp     dto.ReportListResponse
}

func (s *stubReportService) Submit(_ context.Context, reporterID uint, payload dto.ReportSubmitRequest) (dto.ReportResponse, error) {
	s.lastReporter = reporterID
	return dto.ReportResponse{ID: 1, ReporterID: reporterID, TargetType: models.ReportTargetType(payload.TargetType), TargetID: payload.TargetID, Status: models.ReportStatusOpen}, nil
}

func (s *stubReportService) List(context.Context, dto.ReportListRequest) (dto.ReportListResponse, error) {
	return s.listResp, nil
}

func (s *stubReportService) ListByTarget(_ context.Context, targetType string, _ uint) ([]dto.ReportResponse, error) {
	if targetType != "COMMENT" {
		return nil, fmt.Errorf("%w: unknown report target type", service.ErrInvalidArgument)
	}
	return []dto.ReportResponse{}, nil
}

func (s *stubReportService) Resolve(_ context.Context, _ uint, admin service.ActivityActor, payload dto.ReportResolveRequest) (dto.ReportResponse, error) {
	s.lastActor = admin
	s.lastResolve = payload
	if s.resolveErr != nil {
		return dto.ReportResponse{}, s.resolveErr
	}
	return s.resolved, nil
}

func newReportApp(svc service.ReportService, userID uint, role string) *fiber.App {
	app := fiber.New()
	app.Use(withUser(userID, role))
	h := handler.NewReportHandler(svc, zerolog.Nop())
	h.RegisterSubmit(app.Group("/api/v1/report"))
	h.RegisterModeration(app.Group("/api/v1/reports"))
	return app
}

func TestReportResolutionContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "report_resolution.schema.json"))
	require.NoError(t, err)
	schema, err := jsonschema.NewCompiler().Compile("file://" + schemaPath)
	require.NoError(t, err)

	adminID := uint(3)
	resolvedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubReportService{resolved: dto.ReportResponse{
		ID:            1,
		ReporterID:    2,
		TargetType:    models.ReportTargetComment,
		TargetID:      42,
		Reason:        models.ReportReasonSpam,
		Notes:         "spam link\n[RESOLUTION] removed",
		Status:        models.ReportStatusResolved,
		ResolvedByID:  &adminID,
		ResolvedAt:    &resolvedAt,
		RemoveContent: true,
		BanUser:       true,
		CreatedAt:     resolvedAt.Add(-time.Hour),
	}}
	app := newReportApp(svc, adminID, "admin")

	resp := doJSON(t, app, http.MethodPut, "/api/v1/reports/1/resolve", map[string]interface{}{
		"action":         "RESOLVED",
		"note":           "removed",
		"remove_content": true,
		"ban_user":       true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))

	require.Equal(t, adminID, svc.lastActor.ID)
	require.True(t, svc.lastResolve.RemoveContent)
	require.True(t, svc.lastResolve.BanUser)
	require.False(t, svc.lastResolve.SendWarning)
}

func TestReportResolveErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "invalid action", err: service.ErrInvalidReportAction, status: http.StatusBadRequest},
		{name: "missing report", err: fmt.Errorf("report 9: %w", service.ErrNotFound), status: http.StatusNotFound},
		{name: "storage failure", err: fmt.Errorf("connection reset"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newReportApp(&stubReportService{resolveErr: tc.err}, 3, "admin")
			resp := doJSON(t, app, http.MethodPut, "/api/v1/reports/9/resolve", map[string]interface{}{"action": "MAYBE"})
			require.Equal(t, tc.status, resp.StatusCode)
			body := decodeEnvelope(t, resp)
			require.False(t, body.Success)
			if tc.status == http.StatusInternalServerError {
				require.Equal(t, "internal server error", body.Message)
			}
		})
	}
}

func TestReportSubmitUsesAuthenticatedReporter(t *testing.T) {
	svc := &stubReportService{}
	app := newReportApp(svc, 11, "user")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/report/submit", map[string]interface{}{
		"target_type": "POST",
		"target_id":   7,
		"reason":      "SPAM",
		"reporter_id": 99,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, uint(11), svc.lastReporter)
}

func TestReportListByTargetRejectsUnknownType(t *testing.T) {
	app := newReportApp(&stubReportService{}, 3, "admin")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/reports/target/ALBUM/4", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/reports/target/COMMENT/zero", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportListReturnsPaginationMeta(t *testing.T) {
	svc := &stubReportService{listResp: dto.ReportListResponse{
		Items:      []dto.ReportResponse{{ID: 1, Status: models.ReportStatusOpen}},
		Pagination: dto.NewPaginationMeta(1, 20, 1),
	}}
	app := newReportApp(svc, 3, "admin")

	resp := doJSON(t, app, http.MethodGet, "/api/v1/reports?status=OPEN", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	var body struct {
		Data []dto.ReportResponse `json:"data"`
		Meta dto.PaginationMeta   `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	require.Equal(t, int64(1), body.Meta.TotalItems)
}
