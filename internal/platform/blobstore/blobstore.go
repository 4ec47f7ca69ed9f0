// Package blobstore provides blob storage for archived call artifacts
// (recordings and SOAP PDFs). It defines the Store interface, a thread-safe
// in-memory implementation, time-limited signed download URLs, and the Echo
// handler that serves blobs to holders of a valid signed token.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrBlobTooLarge = errors.New("blob exceeds maximum allowed size")
	ErrInvalidToken = errors.New("invalid or expired download token")
)

// MaxBlobSize caps a single stored artifact (100 MB).
const MaxBlobSize = 100 * 1024 * 1024

// Store is the blob store capability consumed by the archiver and the read
// APIs. Keys are caller-chosen and collision avoidance is the caller's
// responsibility.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}

type storedBlob struct {
	data        []byte
	contentType string
	storedAt    time.Time
}

// InMemoryStore is a thread-safe, in-memory Store.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]storedBlob
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string]storedBlob)}
}

func (s *InMemoryStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("blob key is required")
	}
	if int64(len(data)) > MaxBlobSize {
		return "", ErrBlobTooLarge
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	s.blobs[key] = storedBlob{data: stored, contentType: contentType, storedAt: time.Now().UTC()}
	s.mu.Unlock()

	return key, nil
}

func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	blob, ok := s.blobs[key]
	s.mu.RUnlock()

	if !ok {
		return nil, "", ErrBlobNotFound
	}
	out := make([]byte, len(blob.data))
	copy(out, blob.data)
	return out, blob.contentType, nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}

// URLSigner mints and verifies signed download URLs. Tokens are HS256 JWTs
// carrying the blob key and an expiry.
type URLSigner struct {
	secret  []byte
	baseURL string
}

// NewURLSigner creates a signer. baseURL is the externally reachable server
// root, e.g. "https://intake.example.com".
func NewURLSigner(secret []byte, baseURL string) *URLSigner {
	return &URLSigner{secret: secret, baseURL: baseURL}
}

// SignedURL returns a download URL valid for ttl.
func (s *URLSigner) SignedURL(key string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"key": key,
		"exp": jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign download token: %w", err)
	}
	return s.baseURL + "/api/blobs/download?token=" + token, nil
}

// PublicURL returns the unauthenticated URL for a key. Only useful behind a
// trusted proxy; the shipped handler still requires a token.
func (s *URLSigner) PublicURL(key string) string {
	return s.baseURL + "/api/blobs/" + key
}

// VerifyToken validates a download token and returns the blob key it grants.
func (s *URLSigner) VerifyToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	key, _ := claims["key"].(string)
	if key == "" {
		return "", ErrInvalidToken
	}
	return key, nil
}

// Handler serves blob downloads.
type Handler struct {
	store  Store
	signer *URLSigner
}

func NewHandler(store Store, signer *URLSigner) *Handler {
	return &Handler{store: store, signer: signer}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/blobs/download", h.handleDownload)
}

func (h *Handler) handleDownload(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "token is required"})
	}

	key, err := h.signer.VerifyToken(token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	data, contentType, err := h.store.Get(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.Blob(http.StatusOK, contentType, data)
}
