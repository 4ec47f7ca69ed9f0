package blobstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestInMemoryStorePutGetDelete(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	key, err := s.Put(ctx, "recordings/call-1/123.wav", []byte("audio-bytes"), "audio/wav")
	if err != nil {
		t.Fatal(err)
	}
	if key != "recordings/call-1/123.wav" {
		t.Errorf("key = %q", key)
	}

	data, ct, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "audio-bytes" || ct != "audio/wav" {
		t.Errorf("got %q, %q", data, ct)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Get(ctx, key); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("err = %v", err)
	}
	if err := s.Delete(ctx, key); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("double delete err = %v", err)
	}
}

func TestInMemoryStoreRejectsEmptyKey(t *testing.T) {
	if _, err := NewInMemoryStore().Put(context.Background(), "", []byte("x"), ""); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestURLSignerRoundTrip(t *testing.T) {
	signer := NewURLSigner([]byte("test-secret"), "http://localhost:8000")

	u, err := signer.SignedURL("recordings/c1/1.wav", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatal(err)
	}
	key, err := signer.VerifyToken(parsed.Query().Get("token"))
	if err != nil {
		t.Fatal(err)
	}
	if key != "recordings/c1/1.wav" {
		t.Errorf("key = %q", key)
	}
}

func TestURLSignerRejectsExpiredAndForged(t *testing.T) {
	signer := NewURLSigner([]byte("test-secret"), "http://localhost:8000")

	u, _ := signer.SignedURL("k", -time.Minute)
	parsed, _ := url.Parse(u)
	if _, err := signer.VerifyToken(parsed.Query().Get("token")); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token err = %v", err)
	}

	other := NewURLSigner([]byte("other-secret"), "http://localhost:8000")
	u, _ = other.SignedURL("k", time.Minute)
	parsed, _ = url.Parse(u)
	if _, err := signer.VerifyToken(parsed.Query().Get("token")); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("forged token err = %v", err)
	}
}

func TestHandlerDownload(t *testing.T) {
	store := NewInMemoryStore()
	signer := NewURLSigner([]byte("s"), "http://localhost")
	_, _ = store.Put(context.Background(), "recordings/c1/1.wav", []byte("abc"), "audio/wav")

	h := NewHandler(store, signer)
	e := echo.New()

	serve := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/api/blobs/download")
		if err := h.handleDownload(c); err != nil {
			t.Fatal(err)
		}
		return rec
	}

	// No token.
	if rec := serve("/api/blobs/download"); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", rec.Code)
	}

	// Valid token.
	u, _ := signer.SignedURL("recordings/c1/1.wav", time.Minute)
	target := "/api/blobs/download?" + strings.SplitN(u, "?", 2)[1]
	rec := serve(target)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "abc" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("content type = %q", ct)
	}

	// Valid token for a missing blob.
	u, _ = signer.SignedURL("gone", time.Minute)
	target = "/api/blobs/download?" + strings.SplitN(u, "?", 2)[1]
	if rec := serve(target); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}
