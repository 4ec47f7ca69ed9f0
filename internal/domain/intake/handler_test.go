package intake

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/verde-health/intake-api/internal/platform/vapi"
)

func newTestHandler(repo Repository, calls CallInitiator) *Handler {
	return NewHandler(NewService(repo, calls, mockSigner{}, zerolog.Nop()), time.Minute)
}

func doRequest(h echo.HandlerFunc, method, target, body string, params map[string]string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	return rec, h(c)
}

func TestStartCallHandler(t *testing.T) {
	repo := newMockRepo()
	h := newTestHandler(repo, &mockInitiator{info: &vapi.CallInfo{ID: "call-9", Status: "queued"}})

	rec, err := doRequest(h.StartCall, http.MethodPost, "/api/calls/start", `{"phoneNumber":"+15551234567"}`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"callId":"call-9"`) {
		t.Errorf("body = %s", body)
	}
	if !strings.Contains(body, `"status":"calling"`) {
		t.Errorf("body = %s", body)
	}
}

func TestStartCallHandlerRequiresPhoneNumber(t *testing.T) {
	h := newTestHandler(newMockRepo(), &mockInitiator{})

	_, err := doRequest(h.StartCall, http.MethodPost, "/api/calls/start", `{}`, nil)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
}

func TestStartCallHandlerProviderFailure(t *testing.T) {
	h := newTestHandler(newMockRepo(), &mockInitiator{err: fmt.Errorf("provider down")})

	rec, err := doRequest(h.StartCall, http.MethodPost, "/api/calls/start", `{"phoneNumber":"+15551234567"}`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Failed to start call") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListSessionsHandler(t *testing.T) {
	repo := newMockRepo()
	for i := 0; i < 3; i++ {
		_ = repo.Create(context.Background(), &Session{PhoneNumber: "+1555", Status: StatusCompleted})
	}
	h := newTestHandler(repo, &mockInitiator{})

	rec, err := doRequest(h.ListSessions, http.MethodGet, "/api/sessions?limit=2", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"total":3`) {
		t.Errorf("body = %s", body)
	}
	if got := strings.Count(body, `"phone_number"`); got != 2 {
		t.Errorf("page should hold 2 sessions, got %d", got)
	}
	if !strings.Contains(body, `"relation":"self"`) {
		t.Errorf("missing self link: %s", body)
	}
	if !strings.Contains(body, `"relation":"next"`) || !strings.Contains(body, "/api/sessions?offset=2") {
		t.Errorf("missing next link: %s", body)
	}
}

func TestGetSessionHandler(t *testing.T) {
	repo := newMockRepo()
	sess := &Session{PhoneNumber: "+1555", Status: StatusCompleted}
	_ = repo.Create(context.Background(), sess)
	h := newTestHandler(repo, &mockInitiator{})

	rec, err := doRequest(h.GetSession, http.MethodGet, "/api/sessions/"+sess.ID.String(), "", map[string]string{"id": sess.ID.String()})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), sess.ID.String()) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetSessionHandlerNotFound(t *testing.T) {
	h := newTestHandler(newMockRepo(), &mockInitiator{})

	_, err := doRequest(h.GetSession, http.MethodGet, "/api/sessions/x", "", map[string]string{"id": uuid.NewString()})
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want 404", err)
	}
}

func TestGetSessionHandlerInvalidID(t *testing.T) {
	h := newTestHandler(newMockRepo(), &mockInitiator{})

	_, err := doRequest(h.GetSession, http.MethodGet, "/api/sessions/nope", "", map[string]string{"id": "nope"})
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("err = %v, want 400", err)
	}
}

func TestGetRecordingURLHandler(t *testing.T) {
	repo := newMockRepo()
	key := "recordings/c1/1.wav"
	sess := &Session{PhoneNumber: "+1555", Status: StatusCompleted, RecordingKey: &key}
	_ = repo.Create(context.Background(), sess)
	h := newTestHandler(repo, &mockInitiator{})

	rec, err := doRequest(h.GetRecordingURL, http.MethodGet, "/api/sessions/"+sess.ID.String()+"/recording", "", map[string]string{"id": sess.ID.String()})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "https://signed.example.com/recordings/c1/1.wav") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetRecordingURLHandlerNoRecording(t *testing.T) {
	repo := newMockRepo()
	sess := &Session{PhoneNumber: "+1555", Status: StatusCompleted}
	_ = repo.Create(context.Background(), sess)
	h := newTestHandler(repo, &mockInitiator{})

	_, err := doRequest(h.GetRecordingURL, http.MethodGet, "/api/sessions/"+sess.ID.String()+"/recording", "", map[string]string{"id": sess.ID.String()})
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want 404", err)
	}
}
