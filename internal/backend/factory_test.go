package backend

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/appwrite/sdk-for-go/id"
	"github.com/appwrite/sdk-for-go/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/storeit/internal/backend/appwritetest"
	"github.com/sumire/storeit/internal/domain"
)

func newFactory(srv *appwritetest.Server) *Factory {
	return NewFactory(Config{
		Endpoint:  srv.Endpoint(),
		ProjectID: appwritetest.Project,
		APIKey:    appwritetest.APIKey,
	})
}

func TestCreateSessionClient_RejectsEmptySecret(t *testing.T) {
	f := NewFactory(Config{Endpoint: "http://unused", ProjectID: "p"})

	_, err := f.CreateSessionClient("")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSessionClientFromRequest(t *testing.T) {
	f := NewFactory(Config{Endpoint: "http://unused", ProjectID: "p"})

	t.Run("missing cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := f.SessionClientFromRequest(r)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("empty cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: domain.SessionCookieName, Value: ""})
		_, err := f.SessionClientFromRequest(r)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("present cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: domain.SessionCookieName, Value: "secret"})
		c, err := f.SessionClientFromRequest(r)
		require.NoError(t, err)
		assert.NotNil(t, c.Account())
		assert.NotNil(t, c.Databases())
	})
}

func TestAdminAndSessionClientsReachPlatform(t *testing.T) {
	srv := appwritetest.New(t)
	f := newFactory(srv)

	admin := f.CreateAdminClient()
	token, err := admin.Account().CreateEmailToken(id.Unique(), "ann@x.com")
	require.NoError(t, err)

	_, err = admin.Account().CreateSession(token.UserId, "wrong!")
	assert.ErrorIs(t, Error(err), domain.ErrUnauthorized)

	code, ok := srv.LastCode("ann@x.com")
	require.True(t, ok)
	session, err := admin.Account().CreateSession(token.UserId, code)
	require.NoError(t, err)
	assert.Equal(t, token.UserId, session.UserId)

	sc, err := f.CreateSessionClient(session.Secret)
	require.NoError(t, err)
	me, err := sc.Account().Get()
	require.NoError(t, err)
	assert.Equal(t, token.UserId, me.Id)
	assert.Equal(t, "ann@x.com", me.Email)

	_, err = sc.Account().DeleteSession("current")
	require.NoError(t, err)
	assert.Zero(t, srv.Sessions())

	_, err = sc.Account().Get()
	assert.ErrorIs(t, Error(err), domain.ErrUnauthorized)
}

func TestAdminClient_ListsFilesWithQueries(t *testing.T) {
	srv := appwritetest.New(t)
	srv.SeedFile("uploads", "report.pdf")
	srv.SeedFile("uploads", "photo.png")

	st := newFactory(srv).CreateAdminClient().Storage()
	files, err := st.ListFiles("uploads", st.WithListFilesQueries([]string{query.Limit(1)}))
	require.NoError(t, err)
	require.Len(t, files.Files, 1)
	assert.Equal(t, "report.pdf", files.Files[0].Name)
}

func TestSessionClient_CannotUseAdminOnlyEndpoints(t *testing.T) {
	srv := appwritetest.New(t)
	f := newFactory(srv)

	sc, err := f.CreateSessionClient("not-a-session")
	require.NoError(t, err)

	db := sc.Databases()
	_, err = db.ListDocuments("main", "users", db.WithListDocumentsQueries([]string{query.Limit(1)}))
	assert.ErrorIs(t, Error(err), domain.ErrUnauthorized)
}

func TestAdminClient_InitialsURL(t *testing.T) {
	f := NewFactory(Config{Endpoint: "https://cloud.example.com/v1/", ProjectID: "proj"})

	raw := f.CreateAdminClient().InitialsURL("Ann Lee")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "https://cloud.example.com/v1/avatars/initials?"))
	assert.Equal(t, "Ann Lee", u.Query().Get("name"))
	assert.Equal(t, "proj", u.Query().Get("project"))
}

type statusErr int

func (e statusErr) Error() string       { return http.StatusText(int(e)) }
func (e statusErr) GetStatusCode() int { return int(e) }

func TestError_MapsStatusToDomain(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, domain.ErrInvalidInput},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrForbidden},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusConflict, domain.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := Error(statusErr(tt.status))
			assert.ErrorIs(t, err, tt.want)

			var sc statusErr
			require.True(t, errors.As(err, &sc))
			assert.Equal(t, tt.status, int(sc))
		})
	}

	assert.NoError(t, Error(nil))
	plain := errors.New("dial tcp: refused")
	assert.Same(t, plain, Error(plain))
	assert.Equal(t, statusErr(http.StatusBadGateway), Error(statusErr(http.StatusBadGateway)))
}
