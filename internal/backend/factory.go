// Package backend builds platform clients for the two trust levels storeit
// uses: a user's session and the server's API key.
package backend

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/appwrite/sdk-for-go/account"
	"github.com/appwrite/sdk-for-go/appwrite"
	"github.com/appwrite/sdk-for-go/client"
	"github.com/appwrite/sdk-for-go/databases"
	"github.com/appwrite/sdk-for-go/storage"

	"github.com/sumire/storeit/internal/domain"
)

// Config locates the platform project.
type Config struct {
	Endpoint  string
	ProjectID string
	APIKey    string
}

// Factory creates session-scoped and admin-scoped clients.
type Factory struct {
	cfg Config
}

// NewFactory creates a new Factory.
func NewFactory(cfg Config) *Factory {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &Factory{cfg: cfg}
}

// SessionClient acts on behalf of the user owning a session.
type SessionClient struct {
	client client.Client
}

// Account returns the account service bound to the session.
func (s *SessionClient) Account() *account.Account { return appwrite.NewAccount(s.client) }

// Databases returns the databases service bound to the session.
func (s *SessionClient) Databases() *databases.Databases { return appwrite.NewDatabases(s.client) }

// AdminClient acts with the server API key, before any session exists.
type AdminClient struct {
	client client.Client
	cfg    Config
}

// Account returns the account service bound to the API key.
func (a *AdminClient) Account() *account.Account { return appwrite.NewAccount(a.client) }

// Databases returns the databases service bound to the API key.
func (a *AdminClient) Databases() *databases.Databases { return appwrite.NewDatabases(a.client) }

// Storage returns the storage service bound to the API key.
func (a *AdminClient) Storage() *storage.Storage { return appwrite.NewStorage(a.client) }

// InitialsURL returns the public URL of the avatars initials image for name.
// The SDK's avatars service downloads the image; storeit only stores the link.
func (a *AdminClient) InitialsURL(name string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("project", a.cfg.ProjectID)
	return a.cfg.Endpoint + "/avatars/initials?" + q.Encode()
}

// CreateSessionClient returns a client bound to secret. An empty secret is
// rejected with domain.ErrUnauthorized.
func (f *Factory) CreateSessionClient(secret string) (*SessionClient, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: no session", domain.ErrUnauthorized)
	}
	c := appwrite.NewClient(
		appwrite.WithEndpoint(f.cfg.Endpoint),
		appwrite.WithProject(f.cfg.ProjectID),
		appwrite.WithSession(secret),
	)
	return &SessionClient{client: c}, nil
}

// SessionClientFromRequest reads the session cookie from r and returns a
// client bound to it.
func (f *Factory) SessionClientFromRequest(r *http.Request) (*SessionClient, error) {
	return f.CreateSessionClient(SessionSecret(r))
}

// CreateAdminClient returns a client authenticated with the API key.
func (f *Factory) CreateAdminClient() *AdminClient {
	c := appwrite.NewClient(
		appwrite.WithEndpoint(f.cfg.Endpoint),
		appwrite.WithProject(f.cfg.ProjectID),
		appwrite.WithKey(f.cfg.APIKey),
	)
	return &AdminClient{client: c, cfg: f.cfg}
}

// SessionSecret returns the value of the session cookie, or "".
func SessionSecret(r *http.Request) string {
	cookie, err := r.Cookie(domain.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
