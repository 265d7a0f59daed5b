package ceremonies

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

var ceremonyCols = []string{"id", "event_id", "title", "starts_at", "visibility", "created_at", "updated_at"}

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
	repo := NewRepository(mock)
	h := NewHandler(repo, f.checker, nil)

	r := gin.New()
	optional := middleware.OptionalJWT(f.jwt)
	required := middleware.JWT(f.jwt)
	r.POST("/events/:id/ceremonies", required, middleware.RequireOrganizer(f.checker), h.Create)
	r.GET("/events/:id/ceremonies", optional, middleware.RequireEventView(f.checker), h.ListForEvent)
	r.GET("/ceremonies/:id", optional, middleware.RequireCeremonyAccess(f.checker), h.Get)
	r.PATCH("/ceremonies/:id", required, RequireCeremonyOrganizer(repo, f.checker), h.Update)
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

func ceremonyRow(rows *pgxmock.Rows, id, eventID uuid.UUID, vis models.Visibility) *pgxmock.Rows {
	now := time.Now()
	return rows.AddRow(id, eventID, "Vows", (*time.Time)(nil), vis, now, now)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	eventID, owner := uuid.New(), uuid.New()
	f.checker.SetEvent(access.UserActor(owner), eventID, accesstest.Organizer())

	f.mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO ceremonies`)).
		WithArgs(eventID, "Vows", (*time.Time)(nil), models.VisibilityInvitedOnly).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(uuid.New(), time.Now(), time.Now()))

	w := f.do(http.MethodPost, "/events/"+eventID.String()+"/ceremonies", f.token(t, owner), `{"title":"Vows"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGet_GatedByCeremonyAccess(t *testing.T) {
	f := newFixture(t)
	ceremonyID, eventID, guest := uuid.New(), uuid.New(), uuid.New()
	f.checker.AllowCeremony(access.UserActor(guest), ceremonyID)

	f.mock.ExpectQuery(regexp.QuoteMeta(`FROM ceremonies WHERE id = $1`)).WithArgs(ceremonyID).
		WillReturnRows(ceremonyRow(pgxmock.NewRows(ceremonyCols), ceremonyID, eventID, models.VisibilityInvitedOnly))

	path := "/ceremonies/" + ceremonyID.String()
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, path, f.token(t, guest), "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, path, "", "").Code)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestListForEvent_FiltersByGate(t *testing.T) {
	f := newFixture(t)
	eventID, guest := uuid.New(), uuid.New()
	open, closed := uuid.New(), uuid.New()
	actor := access.UserActor(guest)
	f.checker.SetEvent(actor, eventID, accesstest.Guest()).AllowCeremony(actor, open)

	rows := pgxmock.NewRows(ceremonyCols)
	ceremonyRow(rows, open, eventID, models.VisibilityPublic)
	ceremonyRow(rows, closed, eventID, models.VisibilityInvitedOnly)
	f.mock.ExpectQuery(regexp.QuoteMeta(`FROM ceremonies WHERE event_id = $1`)).WithArgs(eventID).WillReturnRows(rows)

	w := f.do(http.MethodGet, "/events/"+eventID.String()+"/ceremonies", f.token(t, guest), "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.Ceremony `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, open, body.Data[0].ID)
}

func TestUpdate_OrganizerOnly(t *testing.T) {
	ceremonyID, eventID, owner, guest := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	getQuery := regexp.QuoteMeta(`FROM ceremonies WHERE id = $1`)

	t.Run("organizer", func(t *testing.T) {
		f := newFixture(t)
		f.checker.SetEvent(access.UserActor(owner), eventID, accesstest.Organizer())
		f.mock.ExpectQuery(getQuery).WithArgs(ceremonyID).
			WillReturnRows(ceremonyRow(pgxmock.NewRows(ceremonyCols), ceremonyID, eventID, models.VisibilityInvitedOnly))
		f.mock.ExpectQuery(regexp.QuoteMeta(`UPDATE ceremonies SET`)).
			WithArgs(ceremonyID, "Vows", (*time.Time)(nil), models.VisibilityConnected).
			WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

		w := f.do(http.MethodPatch, "/ceremonies/"+ceremonyID.String(), f.token(t, owner), `{"visibility":"CONNECTED"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("guest forbidden", func(t *testing.T) {
		f := newFixture(t)
		f.checker.SetEvent(access.UserActor(guest), eventID, accesstest.Guest())
		f.mock.ExpectQuery(getQuery).WithArgs(ceremonyID).
			WillReturnRows(ceremonyRow(pgxmock.NewRows(ceremonyCols), ceremonyID, eventID, models.VisibilityInvitedOnly))

		w := f.do(http.MethodPatch, "/ceremonies/"+ceremonyID.String(), f.token(t, guest), `{"title":"x"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("stranger sees not found", func(t *testing.T) {
		f := newFixture(t)
		f.mock.ExpectQuery(getQuery).WithArgs(ceremonyID).
			WillReturnRows(ceremonyRow(pgxmock.NewRows(ceremonyCols), ceremonyID, eventID, models.VisibilityInvitedOnly))

		w := f.do(http.MethodPatch, "/ceremonies/"+ceremonyID.String(), f.token(t, uuid.New()), `{"title":"x"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid visibility", func(t *testing.T) {
		f := newFixture(t)
		f.checker.SetEvent(access.UserActor(owner), eventID, accesstest.Organizer())
		f.mock.ExpectQuery(getQuery).WithArgs(ceremonyID).
			WillReturnRows(ceremonyRow(pgxmock.NewRows(ceremonyCols), ceremonyID, eventID, models.VisibilityInvitedOnly))

		w := f.do(http.MethodPatch, "/ceremonies/"+ceremonyID.String(), f.token(t, owner), `{"visibility":"SECRET"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
