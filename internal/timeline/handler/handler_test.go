package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "chronicle/internal/identity/models"
	"chronicle/internal/platform/logger"
	"chronicle/internal/platform/middleware"
	"chronicle/internal/timeline/handler"
	"chronicle/internal/timeline/models"
	"chronicle/internal/timeline/service"
	"chronicle/internal/timeline/store"
	"chronicle/pkg/testutil"
)

// fixture serves the timeline routes over the real service and an in-memory
// store. Tokens map directly to principals; token resolution itself is covered
// by the middleware and identity tests.
type fixture struct {
	router chi.Router
}

type tokenResolver struct {
	principals map[string]identity.Principal
}

func (r *tokenResolver) ResolveToken(_ context.Context, tokenString string) (identity.Principal, *identity.User, error) {
	if p, ok := r.principals[tokenString]; ok {
		return p, nil, nil
	}
	return identity.Anonymous(), nil, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := service.NewService(store.NewInMemory(), logger.New())
	h := handler.New(svc, logger.New())

	resolver := &tokenResolver{principals: map[string]identity.Principal{
		"admin-token":       testutil.AdminPrincipal(),
		"contributor-token": testutil.ContributorPrincipal(),
		"other-token":       testutil.OtherContributorPrincipal(),
	}}

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(middleware.Principal(resolver))
		h.Register(r)
		h.RegisterAdmin(r)
	})
	return &fixture{router: router}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// doRaw sends the body verbatim, for requests that must not be valid JSON.
func (f *fixture) doRaw(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createEvent(t *testing.T) models.EventResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/events", "contributor-token", testutil.ValidPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp models.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func Test_CreateEvent(t *testing.T) {
	f := newFixture(t)

	event := f.createEvent(t)
	assert.Equal(t, models.StatusPending, event.Status)
	assert.Equal(t, testutil.TestIDs.ContributorID.String(), event.CreatedBy)
}

func Test_CreateEvent_RequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/events", "", testutil.ValidPayload())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_CreateEvent_InvalidPayload(t *testing.T) {
	f := newFixture(t)
	payload := testutil.ValidPayload()
	payload.Title = ""
	rec := f.do(t, http.MethodPost, "/events", "contributor-token", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_GetEvent_VisibilityAsNotFound(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	// Owner sees the pending event; strangers get 404, not 403.
	rec := f.do(t, http.MethodGet, "/events/"+event.ID, "contributor-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/events/"+event.ID, "other-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/events/"+event.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_GetEvent_InvalidID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/events/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_ApproveFlow(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	rec := f.do(t, http.MethodPost, "/admin/events/"+event.ID+"/approve", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved models.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)

	// Now publicly visible.
	rec = f.do(t, http.MethodGet, "/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func Test_AdminRoutes_RequireAdmin(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	rec := f.do(t, http.MethodPost, "/admin/events/"+event.ID+"/approve", "contributor-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/admin/events/pending", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_ApproveTwice_IsForbidden(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	rec := f.do(t, http.MethodPost, "/admin/events/"+event.ID+"/approve", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/admin/events/"+event.ID+"/approve", "admin-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_PendingQueue(t *testing.T) {
	f := newFixture(t)
	f.createEvent(t)
	f.createEvent(t)

	rec := f.do(t, http.MethodGet, "/admin/events/pending", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)
	for _, e := range list.Events {
		assert.Equal(t, models.StatusPending, e.Status)
	}
}

func Test_DeletionRoundTrip(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	rec := f.do(t, http.MethodPost, "/admin/events/"+event.ID+"/approve", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/events/"+event.ID+"/request-deletion", "contributor-token",
		map[string]string{"note": "duplicate entry"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/admin/events/"+event.ID+"/confirm-deletion", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted models.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	assert.Equal(t, models.StatusDeleted, deleted.Status)

	// Deleted events disappear from the public read path; admins still see
	// them for audit.
	rec = f.do(t, http.MethodGet, "/events/"+event.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/events/"+event.ID, "admin-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_RequestDeletion_MalformedNote(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	rec := f.do(t, http.MethodPost, "/admin/events/"+event.ID+"/approve", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// A note body that is present but unparseable is rejected up front.
	rec = f.doRaw(t, http.MethodPost, "/events/"+event.ID+"/request-deletion", "contributor-token", `{"note":`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// Nothing happened: the event is still approved and a clean retry works.
	rec = f.do(t, http.MethodGet, "/events/"+event.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.StatusApproved, got.Status)

	rec = f.doRaw(t, http.MethodPost, "/events/"+event.ID+"/request-deletion", "contributor-token", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func Test_Reject_MalformedNote(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	rec := f.doRaw(t, http.MethodPost, "/admin/events/"+event.ID+"/reject", "admin-token", "not json")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/events/"+event.ID, "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.EventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.StatusPending, got.Status)
}

func Test_History_AccessControl(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	rec := f.do(t, http.MethodPost, "/admin/events/"+event.ID+"/approve", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/events/"+event.ID+"/history", "contributor-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history models.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.History, 2)
	assert.Equal(t, models.ActionCreated, history.History[0].Action)
	assert.Equal(t, models.ActionApproved, history.History[1].Action)

	// The event is approved and visible, but its history is not public.
	rec = f.do(t, http.MethodGet, "/events/"+event.ID+"/history", "other-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_ListFilters(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	rec := f.do(t, http.MethodPost, "/admin/events/"+event.ID+"/approve", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/events?year=830", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rec = f.do(t, http.MethodGet, "/events?year=1500", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Count)

	rec = f.do(t, http.MethodGet, "/events?year=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
