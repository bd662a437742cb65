// Package appwritetest runs an in-memory stand-in for the Appwrite REST API
// covering the endpoints storeit calls. It is meant for tests only.
package appwritetest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// Credentials the fake accepts.
const (
	Project = "test-project"
	APIKey  = "test-api-key"
)

// SentCode records one email token dispatch.
type SentCode struct {
	UserID string
	Email  string
	Code   string
}

type account struct {
	id    string
	email string
	name  string
}

type session struct {
	id     string
	userID string
}

// Server is a fake Appwrite project.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]*account
	codes     map[string]string
	sessions  map[string]*session
	documents map[string][]map[string]any
	files     map[string][]map[string]any
	sent      []SentCode

	failEmailToken    bool
	failDeleteSession bool
}

// New starts a Server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		accounts:  make(map[string]*account),
		codes:     make(map[string]string),
		sessions:  make(map[string]*session),
		documents: make(map[string][]map[string]any),
		files:     make(map[string][]map[string]any),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/account/tokens/email", s.keyed(s.createEmailToken))
	mux.HandleFunc("POST /v1/account/sessions/token", s.keyed(s.createSession))
	mux.HandleFunc("GET /v1/account", s.getAccount)
	mux.HandleFunc("DELETE /v1/account/sessions/{id}", s.deleteSession)
	mux.HandleFunc("GET /v1/databases/{db}/collections/{coll}/documents", s.listDocuments)
	mux.HandleFunc("POST /v1/databases/{db}/collections/{coll}/documents", s.keyed(s.createDocument))
	mux.HandleFunc("GET /v1/storage/buckets/{bucket}/files", s.keyed(s.listFiles))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Endpoint is the API base URL to configure clients with.
func (s *Server) Endpoint() string {
	return s.URL + "/v1"
}

// FailEmailToken makes token dispatch answer 500 while on is true.
func (s *Server) FailEmailToken(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failEmailToken = on
}

// FailDeleteSession makes session deletion answer 500 while on is true.
func (s *Server) FailDeleteSession(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDeleteSession = on
}

// Sent returns every dispatched code in order.
func (s *Server) Sent() []SentCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentCode(nil), s.sent...)
}

// LastCode returns the latest code emailed to email.
func (s *Server) LastCode(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].Email == email {
			return s.sent[i].Code, true
		}
	}
	return "", false
}

// Documents returns a copy of the documents stored in a collection.
func (s *Server) Documents(databaseID, collectionID string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.documents[databaseID+"/"+collectionID]...)
}

// SeedDocument stores a document as if it had been created through the API.
func (s *Server) SeedDocument(databaseID, collectionID string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertDocument(databaseID, collectionID, randomID(), data)
}

// SeedFile stores file metadata in a bucket.
func (s *Server) SeedFile(bucketID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[bucketID] = append(s.files[bucketID], map[string]any{
		"$id":          randomID(),
		"bucketId":     bucketID,
		"name":         name,
		"mimeType":     "application/octet-stream",
		"sizeOriginal": 0,
		"$createdAt":   now(),
	})
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) keyed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.validProject(w, r) {
			return
		}
		if r.Header.Get("X-Appwrite-Key") != APIKey {
			writeError(w, http.StatusUnauthorized, "general_unauthorized_scope", "missing scope")
			return
		}
		next(w, r)
	}
}

func (s *Server) validProject(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("X-Appwrite-Project") != Project {
		writeError(w, http.StatusNotFound, "project_not_found", "project not found")
		return false
	}
	return true
}

// sessionFor must be called with s.mu held.
func (s *Server) sessionFor(r *http.Request) (*session, bool) {
	secret := r.Header.Get("X-Appwrite-Session")
	if secret == "" {
		return nil, false
	}
	sess, ok := s.sessions[secret]
	return sess, ok
}

func (s *Server) createEmailToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
	}
	if !decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failEmailToken {
		writeError(w, http.StatusInternalServerError, "general_unknown", "smtp unavailable")
		return
	}
	if body.UserID == "" || !strings.Contains(body.Email, "@") {
		writeError(w, http.StatusBadRequest, "general_argument_invalid", "invalid userId or email")
		return
	}

	userID := body.UserID
	for _, a := range s.accounts {
		if strings.EqualFold(a.email, body.Email) {
			userID = a.id
			break
		}
	}
	if _, ok := s.accounts[userID]; !ok {
		s.accounts[userID] = &account{id: userID, email: body.Email}
	}

	code := randomCode()
	s.codes[userID] = code
	s.sent = append(s.sent, SentCode{UserID: userID, Email: body.Email, Code: code})

	writeJSON(w, http.StatusCreated, map[string]any{
		"$id":        randomID(),
		"$createdAt": now(),
		"userId":     userID,
		"secret":     "",
		"expire":     time.Now().Add(15 * time.Minute).UTC().Format(time.RFC3339),
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
		Secret string `json:"secret"`
	}
	if !decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.codes[body.UserID]
	if !ok || code != body.Secret {
		writeError(w, http.StatusUnauthorized, "user_invalid_token", "invalid token passed in the request")
		return
	}
	delete(s.codes, body.UserID)

	sess := &session{id: randomID(), userID: body.UserID}
	secret := randomID() + randomID()
	s.sessions[secret] = sess

	writeJSON(w, http.StatusCreated, map[string]any{
		"$id":     sess.id,
		"userId":  sess.userID,
		"secret":  secret,
		"expire":  time.Now().Add(365 * 24 * time.Hour).UTC().Format(time.RFC3339),
		"current": true,
	})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	if !s.validProject(w, r) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessionFor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "general_unauthorized_scope", "guests missing scope (account)")
		return
	}
	a := s.accounts[sess.userID]
	writeJSON(w, http.StatusOK, map[string]any{
		"$id":               a.id,
		"name":              a.name,
		"email":             a.email,
		"emailVerification": true,
		"status":            true,
		"registration":      now(),
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.validProject(w, r) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failDeleteSession {
		writeError(w, http.StatusInternalServerError, "general_unknown", "server error")
		return
	}
	if _, ok := s.sessionFor(r); !ok || r.PathValue("id") != "current" {
		writeError(w, http.StatusUnauthorized, "general_unauthorized_scope", "guests missing scope (account)")
		return
	}
	delete(s.sessions, r.Header.Get("X-Appwrite-Session"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	if !s.validProject(w, r) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessionFor(r); !ok && r.Header.Get("X-Appwrite-Key") != APIKey {
		writeError(w, http.StatusUnauthorized, "general_unauthorized_scope", "missing scope")
		return
	}

	docs, ok := filter(s.documents[r.PathValue("db")+"/"+r.PathValue("coll")], queries(r))
	if !ok {
		writeError(w, http.StatusBadRequest, "general_query_invalid", "invalid query")
		return
	}
	if docs == nil {
		docs = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(docs), "documents": docs})
}

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DocumentID string         `json:"documentId"`
		Data       map[string]any `json:"data"`
	}
	if !decode(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.PathValue("db") + "/" + r.PathValue("coll")
	for _, d := range s.documents[key] {
		if d["$id"] == body.DocumentID {
			writeError(w, http.StatusConflict, "document_already_exists", "document already exists")
			return
		}
	}
	doc := s.insertDocument(r.PathValue("db"), r.PathValue("coll"), body.DocumentID, body.Data)
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, ok := filter(s.files[r.PathValue("bucket")], queries(r))
	if !ok {
		writeError(w, http.StatusBadRequest, "general_query_invalid", "invalid query")
		return
	}
	if files == nil {
		files = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(files), "files": files})
}

// insertDocument must be called with s.mu held.
func (s *Server) insertDocument(databaseID, collectionID, id string, data map[string]any) map[string]any {
	doc := make(map[string]any, len(data)+5)
	for k, v := range data {
		doc[k] = v
	}
	ts := now()
	doc["$id"] = id
	doc["$databaseId"] = databaseID
	doc["$collectionId"] = collectionID
	doc["$createdAt"] = ts
	doc["$updatedAt"] = ts

	key := databaseID + "/" + collectionID
	s.documents[key] = append(s.documents[key], doc)
	return doc
}

type query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute"`
	Values    []any  `json:"values"`
}

func filter(items []map[string]any, raw []string) ([]map[string]any, bool) {
	limit := -1
	out := items
	for _, r := range raw {
		var q query
		if err := json.Unmarshal([]byte(r), &q); err != nil {
			return nil, false
		}
		switch q.Method {
		case "equal":
			var kept []map[string]any
			for _, item := range out {
				for _, v := range q.Values {
					if fmt.Sprint(item[q.Attribute]) == fmt.Sprint(v) {
						kept = append(kept, item)
						break
					}
				}
			}
			out = kept
		case "limit":
			if len(q.Values) != 1 {
				return nil, false
			}
			n, ok := q.Values[0].(float64)
			if !ok {
				return nil, false
			}
			limit = int(n)
		default:
			return nil, false
		}
	}
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, true
}

// queries collects the query strings of a list request. SDKs send them as
// queries[] or queries[N] depending on the version.
func queries(r *http.Request) []string {
	params := r.URL.Query()
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "queries" || strings.HasPrefix(k, "queries[") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		out = append(out, params[k]...)
	}
	return out
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "general_argument_invalid", "invalid body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, typ, msg string) {
	writeJSON(w, status, map[string]any{
		"message": msg,
		"code":    status,
		"type":    typ,
		"version": "1.6.0",
	})
}

func randomID() string {
	b := make([]byte, 10)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func randomCode() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	code := make([]byte, 6)
	for i := range b {
		code[i] = '0' + b[i]%10
	}
	return string(code)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
