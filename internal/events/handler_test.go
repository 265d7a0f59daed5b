package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/internal/access/accesstest"
	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
)

func init() { gin.SetMode(gin.TestMode) }

var eventCols = []string{"id", "owner_id", "title", "description", "starts_at", "is_public", "visibility", "status", "created_at", "updated_at"}

type fixture struct {
	router  *gin.Engine
	mock    pgxmock.PgxPoolIface
	checker *accesstest.Checker
	jwt     *auth.JWTService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	f := &fixture{mock: mock, checker: accesstest.New(), jwt: auth.NewJWTService("secret", 1)}
	h := NewHandler(NewRepository(mock), f.checker, f.checker, nil)

	r := gin.New()
	optional := middleware.OptionalJWT(f.jwt)
	required := middleware.JWT(f.jwt)
	r.POST("/events", required, h.Create)
	r.GET("/events", optional, h.Timeline)
	r.GET("/events/mine", required, h.Mine)
	r.GET("/events/:id", optional, middleware.RequireEventView(f.checker), h.Get)
	r.GET("/events/:id/access", optional, h.Access)
	r.PATCH("/events/:id", required, middleware.RequireOrganizer(f.checker), h.Update)
	r.DELETE("/events/:id", required, middleware.RequireOrganizer(f.checker), h.Delete)
	f.router = r
	return f
}

func (f *fixture) token(t *testing.T, userID uuid.UUID) string {
	tok, err := f.jwt.Generate(userID, "u@example.com")
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	f.router.ServeHTTP(w, req)
	return w
}

func eventRow(id, owner uuid.UUID, vis models.Visibility) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(eventCols).AddRow(id, owner, "Wedding", "", (*time.Time)(nil), false, vis, models.EventStatusDraft, now, now)
}

func TestCreate_DefaultsToInvitedOnlyDraft(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	f.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO events`)).
		WithArgs(owner, "Wedding", "", (*time.Time)(nil), false, models.VisibilityInvitedOnly, models.EventStatusDraft).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(uuid.New(), time.Now(), time.Now()))

	w := f.do(http.MethodPost, "/events", f.token(t, owner), `{"title":"Wedding"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, uuid.New())

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/events", tok, `{"title":"x","visibility":"SECRET"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/events", tok, `{"title":"x","starts_at":"tomorrow"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/events", "", `{"title":"x"}`).Code)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	eventID, owner := uuid.New(), uuid.New()
	f.checker.SetEvent(access.Anonymous(), eventID, accesstest.Viewer())

	f.mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = $1`)).WithArgs(eventID).
		WillReturnRows(eventRow(eventID, owner, models.VisibilityPublic))

	w := f.do(http.MethodGet, "/events/"+eventID.String(), "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data EventWithAccess `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, eventID, body.Data.Event.ID)
	assert.Equal(t, accesstest.Viewer(), body.Data.Access)

	// Denied and missing look the same and never reach the database.
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/events/"+uuid.NewString(), "", "").Code)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAccess_ReturnsRawDecision(t *testing.T) {
	f := newFixture(t)
	eventID, guest := uuid.New(), uuid.New()
	f.checker.SetEvent(access.UserActor(guest), eventID, accesstest.Guest())

	w := f.do(http.MethodGet, "/events/"+eventID.String()+"/access", f.token(t, guest), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"can_interact":true`)

	w = f.do(http.MethodGet, "/events/"+eventID.String()+"/access", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"can_view":false`)
}

func TestTimeline(t *testing.T) {
	f := newFixture(t)
	a, denied, vanished := uuid.New(), uuid.New(), uuid.New()
	owner := uuid.New()
	f.checker.SetEvent(access.Anonymous(), a, accesstest.Viewer())
	f.checker.SetEvent(access.Anonymous(), vanished, accesstest.Viewer())

	f.mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = ANY($1)`)).WithArgs([]uuid.UUID{a, vanished}).
		WillReturnRows(eventRow(a, owner, models.VisibilityPublic))

	w := f.do(http.MethodGet, "/events?ids="+strings.Join([]string{a.String(), denied.String(), a.String(), vanished.String()}, ","), "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Data []TimelineItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 3)
	assert.Equal(t, a, body.Data[0].ID)
	require.NotNil(t, body.Data[0].Event)
	assert.Equal(t, denied, body.Data[1].ID)
	assert.Nil(t, body.Data[1].Event)
	assert.Equal(t, access.Denied(), body.Data[1].Access)
	assert.Nil(t, body.Data[2].Event)
	assert.Equal(t, access.Denied(), body.Data[2].Access)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestTimeline_BadInput(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/events", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/events?ids=abc", "", "").Code)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	eventID, owner, guest := uuid.New(), uuid.New(), uuid.New()
	f.checker.SetEvent(access.UserActor(owner), eventID, accesstest.Organizer())
	f.checker.SetEvent(access.UserActor(guest), eventID, accesstest.Guest())

	f.mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE id = $1`)).WithArgs(eventID).
		WillReturnRows(eventRow(eventID, owner, models.VisibilityInvitedOnly))
	f.mock.ExpectQuery(regexp.QuoteMeta(`UPDATE events SET`)).
		WithArgs(eventID, "Wedding", "", (*time.Time)(nil), false, models.VisibilityPublic, models.EventStatusPublished).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	path := "/events/" + eventID.String()
	w := f.do(http.MethodPatch, path, f.token(t, owner), `{"visibility":"PUBLIC","status":"PUBLISHED"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []uuid.UUID{eventID}, f.checker.Invalidated)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPatch, path, f.token(t, guest), `{"title":"Mine now"}`).Code)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	eventID, owner := uuid.New(), uuid.New()
	f.checker.SetEvent(access.UserActor(owner), eventID, accesstest.Organizer())

	f.mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM events WHERE id = $1`)).WithArgs(eventID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	w := f.do(http.MethodDelete, "/events/"+eventID.String(), f.token(t, owner), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []uuid.UUID{eventID}, f.checker.Invalidated)
}

func TestMine(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	f.mock.ExpectQuery(regexp.QuoteMeta(`FROM events WHERE owner_id = $1`)).WithArgs(owner).
		WillReturnRows(eventRow(uuid.New(), owner, models.VisibilityConnected))

	w := f.do(http.MethodGet, "/events/mine", f.token(t, owner), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"visibility":"CONNECTED"`)
}
