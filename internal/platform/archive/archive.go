// Package archive downloads provider-hosted call artifacts and persists
// them in the blob store. Archival is best-effort: callers log failures and
// carry on, because a lost recording must never block session completion.
package archive

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/verde-health/intake-api/internal/platform/blobstore"
)

// Kind selects the key prefix and default extension for an artifact.
type Kind string

const (
	KindRecording Kind = "recording"
	KindSOAPPDF   Kind = "soap-pdf"
)

// FetchTimeout bounds a single artifact download.
const FetchTimeout = 30 * time.Second

// maxFetchBytes caps a download at the blob store's own limit.
const maxFetchBytes = blobstore.MaxBlobSize

// Archiver fetches remote artifacts into the blob store.
type Archiver struct {
	store  blobstore.Store
	client *http.Client
	logger zerolog.Logger
	now    func() time.Time
}

func New(store blobstore.Store, logger zerolog.Logger) *Archiver {
	return &Archiver{
		store:  store,
		client: &http.Client{Timeout: FetchTimeout},
		logger: logger.With().Str("component", "archive").Logger(),
		now:    time.Now,
	}
}

// Archive downloads remoteURL and stores it under a key scoped by call id
// and capture time, returning the storage key. The key layout is
// "<prefix>/<callID>/<unixnano><ext>", which keeps repeated archival of the
// same call from colliding.
func (a *Archiver) Archive(ctx context.Context, remoteURL, callID string, kind Kind) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch artifact: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes+1))
	if err != nil {
		return "", fmt.Errorf("read artifact body: %w", err)
	}
	if int64(len(data)) > maxFetchBytes {
		return "", blobstore.ErrBlobTooLarge
	}

	contentType := resp.Header.Get("Content-Type")
	key := a.buildKey(callID, kind, contentType)

	if _, err := a.store.Put(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}

	a.logger.Info().
		Str("call_id", callID).
		Str("kind", string(kind)).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("artifact archived")
	return key, nil
}

func (a *Archiver) buildKey(callID string, kind Kind, contentType string) string {
	prefix := "recordings"
	if kind == KindSOAPPDF {
		prefix = "soap-pdfs"
	}
	if callID == "" {
		callID = "uncorrelated"
	}
	stamp := strconv.FormatInt(a.now().UTC().UnixNano(), 10)
	return prefix + "/" + callID + "/" + stamp + extensionFor(kind, contentType)
}

func extensionFor(kind Kind, contentType string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "audio/wav", "audio/x-wav":
			return ".wav"
		case "audio/mpeg":
			return ".mp3"
		case "application/pdf":
			return ".pdf"
		}
	}
	if kind == KindSOAPPDF {
		return ".pdf"
	}
	if strings.HasPrefix(contentType, "audio/") {
		return ".audio"
	}
	return ".bin"
}
