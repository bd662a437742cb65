package repository

import (
	"errors"
	"testing"

	"github.com/appwrite/sdk-for-go/databases"
	"github.com/appwrite/sdk-for-go/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/storeit/internal/backend"
	"github.com/sumire/storeit/internal/backend/appwritetest"
	"github.com/sumire/storeit/internal/domain"
)

func adminDocs(srv *appwritetest.Server) *databases.Databases {
	return backend.NewFactory(backend.Config{
		Endpoint:  srv.Endpoint(),
		ProjectID: appwritetest.Project,
		APIKey:    appwritetest.APIKey,
	}).CreateAdminClient().Databases()
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	srv := appwritetest.New(t)
	repo := NewUserRepository("main", "users")
	docs := adminDocs(srv)

	created, err := repo.Create(docs, domain.NewUser{
		FullName:  "Ann",
		Email:     "a@x.com",
		Avatar:    "https://img.example/placeholder.png",
		AccountID: "acc1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Ann", created.FullName)
	assert.False(t, created.CreatedAt.IsZero())

	byEmail, err := repo.FindByEmail(docs, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "acc1", byEmail.AccountID)

	byAccount, err := repo.FindByAccountID(docs, "acc1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byAccount.ID)

	require.NoError(t, repo.Ping(docs))
}

func TestUserRepository_FindByEmailReturnsFirstMatch(t *testing.T) {
	srv := appwritetest.New(t)
	srv.SeedDocument("main", "users", map[string]any{"fullName": "Ann", "email": "a@x.com", "accountId": "acc1"})
	srv.SeedDocument("main", "users", map[string]any{"fullName": "Bob", "email": "b@x.com", "accountId": "acc2"})
	srv.SeedDocument("main", "users", map[string]any{"fullName": "Ann Again", "email": "a@x.com", "accountId": "acc3"})
	repo := NewUserRepository("main", "users")

	user, err := repo.FindByEmail(adminDocs(srv), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.FullName)
	assert.Equal(t, "acc1", user.AccountID)

	_, err = repo.FindByEmail(adminDocs(srv), "A@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_NotFound(t *testing.T) {
	srv := appwritetest.New(t)
	repo := NewUserRepository("main", "users")

	_, err := repo.FindByEmail(adminDocs(srv), "nobody@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.FindByAccountID(adminDocs(srv), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type failingDocs struct{ err error }

func (f failingDocs) ListDocuments(string, string, ...databases.ListDocumentsOption) (*models.DocumentList, error) {
	return nil, f.err
}

func (f failingDocs) CreateDocument(string, string, string, interface{}, ...databases.CreateDocumentOption) (*models.Document, error) {
	return nil, f.err
}

func (f failingDocs) WithListDocumentsQueries([]string) databases.ListDocumentsOption {
	return nil
}

func TestUserRepository_PropagatesPlatformErrors(t *testing.T) {
	boom := errors.New("boom")
	repo := NewUserRepository("main", "users")

	_, err := repo.FindByEmail(failingDocs{boom}, "a@x.com")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Create(failingDocs{boom}, domain.NewUser{Email: "a@x.com"})
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, repo.Ping(failingDocs{boom}), boom)
}
