package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parcoursmaker/parcoursmaker/internal/api"
	"github.com/parcoursmaker/parcoursmaker/internal/api/handler"
	"github.com/parcoursmaker/parcoursmaker/internal/extraction"
	"github.com/parcoursmaker/parcoursmaker/internal/recordstore"
	"github.com/parcoursmaker/parcoursmaker/internal/store"
	"github.com/parcoursmaker/parcoursmaker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- test fixtures ---

var (
	testRunID  = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	testRunURL = "https://www.airbnb.fr/rooms/12345"
)

func completedRun() *models.ExtractionRun {
	now := time.Now().UTC()
	completed := now.Add(-time.Minute)
	return &models.ExtractionRun{
		ID:          testRunID,
		ListingURL:  testRunURL,
		Status:      models.RunStatusCompleted,
		RoomCount:   2,
		ImageCount:  3,
		CreatedAt:   now.Add(-5 * time.Minute),
		CompletedAt: &completed,
	}
}

func testExtract() *models.PropertyExtract {
	return &models.PropertyExtract{
		Title: "Charming flat",
		Rooms: []models.CanonicalRoom{
			{Name: "Chambre", Quantity: 1, Photos: []models.MaterializedImage{
				models.PassthroughImage("http://img.test/1.jpg"),
				models.PassthroughImage("http://img.test/2.jpg"),
			}},
			{Name: "Cuisine", Quantity: 1, Photos: []models.MaterializedImage{
				models.PassthroughImage("http://img.test/3.jpg"),
			}},
		},
		TotalImageCount: 3,
	}
}

// --- mock services ---

type mockExtractionSvc struct {
	startRun *models.ExtractionRun
	startErr error
	getRun   *models.ExtractionRun
	extract  *models.PropertyExtract
	getErr   error
}

func (m *mockExtractionSvc) StartExtraction(_ context.Context, _ string) (*models.ExtractionRun, error) {
	return m.startRun, m.startErr
}

func (m *mockExtractionSvc) GetRun(_ context.Context, _ uuid.UUID) (*models.ExtractionRun, *models.PropertyExtract, error) {
	return m.getRun, m.extract, m.getErr
}

type mockCommitter struct {
	result models.CommitResult
	err    error
	gotReq models.CommitRequest
}

func (m *mockCommitter) Commit(_ context.Context, req models.CommitRequest) (models.CommitResult, error) {
	m.gotReq = req
	return m.result, m.err
}

type mockHistorian struct {
	commits []*models.ParcoursCommit
	err     error
	gotLimit int
}

func (m *mockHistorian) History(_ context.Context, limit int) ([]*models.ParcoursCommit, error) {
	m.gotLimit = limit
	return m.commits, m.err
}

type mockTemplateClient struct {
	createID  string
	err       error
	gotEnv    recordstore.Environment
	gotID     string
	gotTpl    recordstore.Template
	deleted   bool
}

func (m *mockTemplateClient) CreateTemplate(_ context.Context, env recordstore.Environment, tpl recordstore.Template) (string, error) {
	m.gotEnv, m.gotTpl = env, tpl
	return m.createID, m.err
}

func (m *mockTemplateClient) UpdateTemplate(_ context.Context, env recordstore.Environment, id string, tpl recordstore.Template) error {
	m.gotEnv, m.gotID, m.gotTpl = env, id, tpl
	return m.err
}

func (m *mockTemplateClient) DeleteTemplate(_ context.Context, env recordstore.Environment, id string) error {
	m.gotEnv, m.gotID, m.deleted = env, id, true
	return m.err
}

// --- helpers ---

func newRouter(ext *mockExtractionSvc, com *mockCommitter, hist *mockHistorian, tpl *mockTemplateClient) http.Handler {
	deps := api.Dependencies{}
	if ext != nil {
		deps.StartExtractionHandler = handler.NewStartExtractionHandler(ext)
		deps.GetRunHandler = handler.NewGetRunHandler(ext)
	}
	if com != nil {
		deps.CommitHandler = handler.NewCommitHandler(com)
	}
	if hist != nil {
		deps.CommitHistoryHandler = handler.NewCommitHistoryHandler(hist)
	}
	if tpl != nil {
		deps.CreateTemplateHandler = handler.NewCreateTemplateHandler(tpl)
		deps.UpdateTemplateHandler = handler.NewUpdateTemplateHandler(tpl)
		deps.DeleteTemplateHandler = handler.NewDeleteTemplateHandler(tpl)
	}
	return api.NewRouter(deps)
}

func do(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	return decodeBody(t, w)["data"].(map[string]any)
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	return decodeBody(t, w)["error"].(map[string]any)
}

// --- POST /api/v1/extractions ---

func TestStartExtraction_Accepted(t *testing.T) {
	now := time.Now().UTC()
	svc := &mockExtractionSvc{startRun: &models.ExtractionRun{
		ID: testRunID, ListingURL: testRunURL, Status: models.RunStatusPending, CreatedAt: now,
	}}
	router := newRouter(svc, nil, nil, nil)

	w := do(t, router, "POST", "/api/v1/extractions", map[string]string{"listing_url": testRunURL})

	assert.Equal(t, http.StatusAccepted, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, testRunID.String(), data["id"])
	assert.Equal(t, models.RunStatusPending, data["status"])
	assert.Equal(t, testRunURL, data["listing_url"])
	_, hasExtract := data["extract"]
	assert.False(t, hasExtract)
}

func TestStartExtraction_InvalidJSON(t *testing.T) {
	router := newRouter(&mockExtractionSvc{}, nil, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/extractions", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorOf(t, w)["code"])
}

func TestStartExtraction_MissingURL(t *testing.T) {
	router := newRouter(&mockExtractionSvc{}, nil, nil, nil)

	w := do(t, router, "POST", "/api/v1/extractions", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorOf(t, w)["code"])
}

func TestStartExtraction_UnsupportedDomain(t *testing.T) {
	svc := &mockExtractionSvc{startErr: extraction.ErrInvalidInput}
	router := newRouter(svc, nil, nil, nil)

	w := do(t, router, "POST", "/api/v1/extractions", map[string]string{"listing_url": "https://evil.example/x"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_LISTING_URL", errorOf(t, w)["code"])
}

func TestStartExtraction_InternalError(t *testing.T) {
	svc := &mockExtractionSvc{startErr: context.DeadlineExceeded}
	router := newRouter(svc, nil, nil, nil)

	w := do(t, router, "POST", "/api/v1/extractions", map[string]string{"listing_url": testRunURL})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorOf(t, w)["code"])
}

// --- GET /api/v1/extractions/{runID} ---

func TestGetRun_CompletedWithExtract(t *testing.T) {
	svc := &mockExtractionSvc{getRun: completedRun(), extract: testExtract()}
	router := newRouter(svc, nil, nil, nil)

	w := do(t, router, "GET", "/api/v1/extractions/"+testRunID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, models.RunStatusCompleted, data["status"])
	assert.Equal(t, float64(3), data["image_count"])
	assert.NotNil(t, data["completed_at"])

	extract := data["extract"].(map[string]any)
	assert.Equal(t, "Charming flat", extract["title"])
	rooms := extract["rooms"].([]any)
	require.Len(t, rooms, 2)
}

func TestGetRun_FailedCarriesError(t *testing.T) {
	msg := "extraction failed with no salvageable data"
	run := completedRun()
	run.Status = models.RunStatusFailed
	run.ErrorMessage = &msg
	svc := &mockExtractionSvc{getRun: run}
	router := newRouter(svc, nil, nil, nil)

	w := do(t, router, "GET", "/api/v1/extractions/"+testRunID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, models.RunStatusFailed, data["status"])
	assert.Equal(t, msg, data["error_message"])
}

func TestGetRun_InvalidUUID(t *testing.T) {
	router := newRouter(&mockExtractionSvc{}, nil, nil, nil)

	w := do(t, router, "GET", "/api/v1/extractions/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorOf(t, w)["code"])
}

func TestGetRun_NotFound(t *testing.T) {
	svc := &mockExtractionSvc{getErr: store.ErrNotFound}
	router := newRouter(svc, nil, nil, nil)

	w := do(t, router, "GET", "/api/v1/extractions/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RUN_NOT_FOUND", errorOf(t, w)["code"])
}

// --- POST /api/v1/parcours ---

func commitPayload() map[string]any {
	return map[string]any{
		"parent": map[string]any{
			"name":          "Appartement canal",
			"parcours_type": "checkin",
		},
		"rooms": []map[string]any{
			{"name": "Chambre", "quantity": 2, "tasks": []string{"draps"}},
		},
	}
}

func TestCommit_Success(t *testing.T) {
	com := &mockCommitter{result: models.CommitResult{
		Success: true, LogementID: "log-1", ParcourID: "par-1",
		SuccessCount: 2, TotalCount: 2,
	}}
	router := newRouter(nil, com, nil, nil)

	w := do(t, router, "POST", "/api/v1/parcours", commitPayload())

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "log-1", data["logement_id"])
	assert.Equal(t, float64(2), data["success_count"])

	assert.Equal(t, "Appartement canal", com.gotReq.Parent.Name)
	assert.Equal(t, 2, com.gotReq.Rooms[0].Quantity)
}

func TestCommit_PartialFailureStillCreated(t *testing.T) {
	com := &mockCommitter{result: models.CommitResult{
		Success: true, LogementID: "log-1", ParcourID: "par-1",
		SuccessCount: 1, ErrorCount: 1, TotalCount: 2,
	}}
	router := newRouter(nil, com, nil, nil)

	w := do(t, router, "POST", "/api/v1/parcours", commitPayload())

	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, float64(1), data["error_count"])
}

func TestCommit_MissingParentName(t *testing.T) {
	router := newRouter(nil, &mockCommitter{}, nil, nil)

	payload := commitPayload()
	payload["parent"] = map[string]any{"parcours_type": "checkin"}
	w := do(t, router, "POST", "/api/v1/parcours", payload)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommit_MissingParcoursType(t *testing.T) {
	router := newRouter(nil, &mockCommitter{}, nil, nil)

	payload := commitPayload()
	payload["parent"] = map[string]any{"name": "Appartement"}
	w := do(t, router, "POST", "/api/v1/parcours", payload)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommit_ParentFailure(t *testing.T) {
	com := &mockCommitter{err: recordstore.ErrParentCreationFailed}
	router := newRouter(nil, com, nil, nil)

	w := do(t, router, "POST", "/api/v1/parcours", commitPayload())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "PARENT_CREATION_FAILED", errorOf(t, w)["code"])
}

func TestCommit_AllRoomsFailed(t *testing.T) {
	com := &mockCommitter{
		result: models.CommitResult{LogementID: "log-1", ParcourID: "par-1", ErrorCount: 2, TotalCount: 2},
		err:    recordstore.ErrAllChildrenFailed,
	}
	router := newRouter(nil, com, nil, nil)

	w := do(t, router, "POST", "/api/v1/parcours", commitPayload())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	errObj := errorOf(t, w)
	assert.Equal(t, "ALL_ROOMS_FAILED", errObj["code"])
	details := errObj["details"].(map[string]any)
	assert.Equal(t, float64(2), details["error_count"])
}

func TestCommit_EnvironmentNotConfigured(t *testing.T) {
	com := &mockCommitter{err: recordstore.ErrEnvironmentNotConfigured}
	router := newRouter(nil, com, nil, nil)

	payload := commitPayload()
	payload["production"] = true
	w := do(t, router, "POST", "/api/v1/parcours", payload)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "ENVIRONMENT_NOT_CONFIGURED", errorOf(t, w)["code"])
}

// --- GET /api/v1/parcours/commits ---

func TestCommitHistory_List(t *testing.T) {
	hist := &mockHistorian{commits: []*models.ParcoursCommit{
		{ID: uuid.New(), LogementID: "log-1", ParcourID: "par-1", Environment: "test", TotalCount: 3, CreatedAt: time.Now().UTC()},
	}}
	router := newRouter(nil, nil, hist, nil)

	w := do(t, router, "GET", "/api/v1/parcours/commits", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].([]any)
	assert.Len(t, data, 1)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(1), meta["count"])
	assert.Equal(t, float64(20), meta["limit"])
	assert.Equal(t, 20, hist.gotLimit)
}

func TestCommitHistory_CustomLimit(t *testing.T) {
	hist := &mockHistorian{}
	router := newRouter(nil, nil, hist, nil)

	w := do(t, router, "GET", "/api/v1/parcours/commits?limit=5", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, hist.gotLimit)
	// Empty history returns an empty array, not null.
	body := decodeBody(t, w)
	data, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Empty(t, data)
}

func TestCommitHistory_InvalidLimit(t *testing.T) {
	router := newRouter(nil, nil, &mockHistorian{}, nil)

	w := do(t, router, "GET", "/api/v1/parcours/commits?limit=abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Template CRUD ---

func templatePayload() map[string]any {
	return map[string]any{
		"name":          "Parcours T2",
		"parcours_type": "checkin",
		"rooms": []map[string]any{
			{"name": "Chambre", "tasks": []string{"draps"}},
		},
		"questions": []string{"Clés rendues ?"},
	}
}

func TestCreateTemplate_Success(t *testing.T) {
	tpl := &mockTemplateClient{createID: "tpl-1"}
	router := newRouter(nil, nil, nil, tpl)

	w := do(t, router, "POST", "/api/v1/templates", templatePayload())

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tpl-1", dataOf(t, w)["id"])
	assert.Equal(t, recordstore.EnvTest, tpl.gotEnv)
	assert.Equal(t, "Parcours T2", tpl.gotTpl.Name)
	require.Len(t, tpl.gotTpl.Rooms, 1)
	assert.Equal(t, "Chambre", tpl.gotTpl.Rooms[0].Name)
}

func TestCreateTemplate_ProductionEnv(t *testing.T) {
	tpl := &mockTemplateClient{createID: "tpl-1"}
	router := newRouter(nil, nil, nil, tpl)

	payload := templatePayload()
	payload["production"] = true
	w := do(t, router, "POST", "/api/v1/templates", payload)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, recordstore.EnvProduction, tpl.gotEnv)
}

func TestCreateTemplate_MissingName(t *testing.T) {
	router := newRouter(nil, nil, nil, &mockTemplateClient{})

	payload := templatePayload()
	delete(payload, "name")
	w := do(t, router, "POST", "/api/v1/templates", payload)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTemplate_StoreRejects(t *testing.T) {
	tpl := &mockTemplateClient{err: recordstore.ErrTemplateCallFailed}
	router := newRouter(nil, nil, nil, tpl)

	w := do(t, router, "POST", "/api/v1/templates", templatePayload())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "TEMPLATE_CALL_FAILED", errorOf(t, w)["code"])
}

func TestUpdateTemplate_Success(t *testing.T) {
	tpl := &mockTemplateClient{}
	router := newRouter(nil, nil, nil, tpl)

	w := do(t, router, "PUT", "/api/v1/templates/tpl-9", templatePayload())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tpl-9", tpl.gotID)
	assert.Equal(t, "tpl-9", dataOf(t, w)["id"])
}

func TestDeleteTemplate_Success(t *testing.T) {
	tpl := &mockTemplateClient{}
	router := newRouter(nil, nil, nil, tpl)

	w := do(t, router, "DELETE", "/api/v1/templates/tpl-9", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, tpl.deleted)
	assert.Equal(t, "tpl-9", tpl.gotID)
	assert.Equal(t, recordstore.EnvTest, tpl.gotEnv)
}

func TestDeleteTemplate_ProductionQueryFlag(t *testing.T) {
	tpl := &mockTemplateClient{}
	router := newRouter(nil, nil, nil, tpl)

	w := do(t, router, "DELETE", "/api/v1/templates/tpl-9?production=true", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, recordstore.EnvProduction, tpl.gotEnv)
}
