package repository

import (
	"fmt"

	"github.com/appwrite/sdk-for-go/databases"
	"github.com/appwrite/sdk-for-go/id"
	"github.com/appwrite/sdk-for-go/models"
	"github.com/appwrite/sdk-for-go/query"

	"github.com/sumire/storeit/internal/backend"
	"github.com/sumire/storeit/internal/domain"
)

// Documents is the subset of the SDK databases service the repositories use.
// Callers pass the binding matching the trust level of the operation.
type Documents interface {
	ListDocuments(databaseID, collectionID string, opts ...databases.ListDocumentsOption) (*models.DocumentList, error)
	CreateDocument(databaseID, collectionID, documentID string, data interface{}, opts ...databases.CreateDocumentOption) (*models.Document, error)
	WithListDocumentsQueries(queries []string) databases.ListDocumentsOption
}

// UserRepository handles user document access in the users collection.
type UserRepository struct {
	databaseID   string
	collectionID string
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(databaseID, collectionID string) *UserRepository {
	return &UserRepository{databaseID: databaseID, collectionID: collectionID}
}

// FindByEmail retrieves the first user whose email matches exactly.
func (r *UserRepository) FindByEmail(docs Documents, email string) (*domain.User, error) {
	user, err := r.findOne(docs, "email", email)
	if err != nil {
		return nil, fmt.Errorf("find user by email %s: %w", email, err)
	}
	return user, nil
}

// FindByAccountID retrieves the user linked to a platform account.
func (r *UserRepository) FindByAccountID(docs Documents, accountID string) (*domain.User, error) {
	user, err := r.findOne(docs, "accountId", accountID)
	if err != nil {
		return nil, fmt.Errorf("find user by account %s: %w", accountID, err)
	}
	return user, nil
}

// Create stores a new user document and returns it.
func (r *UserRepository) Create(docs Documents, user domain.NewUser) (*domain.User, error) {
	doc, err := docs.CreateDocument(r.databaseID, r.collectionID, id.Unique(), user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", backend.Error(err))
	}

	var created domain.User
	if err := doc.Decode(&created); err != nil {
		return nil, fmt.Errorf("decode created user: %w", err)
	}
	return &created, nil
}

// Ping checks that the users collection is readable.
func (r *UserRepository) Ping(docs Documents) error {
	_, err := docs.ListDocuments(r.databaseID, r.collectionID, docs.WithListDocumentsQueries([]string{query.Limit(1)}))
	if err != nil {
		return fmt.Errorf("ping users collection: %w", backend.Error(err))
	}
	return nil
}

func (r *UserRepository) findOne(docs Documents, attribute, value string) (*domain.User, error) {
	list, err := docs.ListDocuments(r.databaseID, r.collectionID, docs.WithListDocumentsQueries([]string{
		query.Equal(attribute, value),
		query.Limit(1),
	}))
	if err != nil {
		return nil, backend.Error(err)
	}
	if list.Total <= 0 {
		return nil, domain.ErrNotFound
	}

	var page struct {
		Documents []domain.User `json:"documents"`
	}
	if err := list.Decode(&page); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	if len(page.Documents) == 0 {
		return nil, domain.ErrNotFound
	}
	return &page.Documents[0], nil
}
