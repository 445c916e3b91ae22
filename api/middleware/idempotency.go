package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/auctionhouse-backend/api/responses"
	pkgerrors "github.com/angelmondragon/auctionhouse-backend/pkg/errors"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
	"github.com/angelmondragon/auctionhouse-backend/pkg/redis"
)

const (
	IdempotencyHeader      = "Idempotency-Key"
	defaultIdempotencyTTL  = 24 * time.Hour
	idempotencyPendingTTL  = time.Minute
	maxIdempotencyKeyBytes = 255
)

// storedResponse is what a key holds in Redis. Status zero marks a request
// that claimed the key and has not finished yet.
type storedResponse struct {
	Fingerprint string `json:"fp"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"ct,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (s storedResponse) pending() bool { return s.Status == 0 }

type idempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// Idempotency makes a request carrying an Idempotency-Key run at most once per
// caller, route and key. The first request claims the key; a repeat with the
// same body gets the recorded response back, a repeat with a different body or
// one arriving while the first is still running is rejected. 5xx outcomes
// release the key so the client can retry.
func Idempotency(store redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	g := &idempotencyGuard{store: store, ttl: ttl, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if header == "" || g.store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if len(header) > maxIdempotencyKeyBytes {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is too long"))
				return
			}
			if err := g.serve(w, r, header, next); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
			}
		})
	}
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, header string, next http.Handler) error {
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	key := g.store.IdempotencyKey(scopeOf(r), header)
	fp := fingerprint(body)

	claimed, err := g.claim(ctx, key, fp)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key")
	}
	if !claimed {
		return g.replay(ctx, w, key, fp)
	}

	rec := &responseCapture{ResponseWriter: w}
	finished := false
	defer func() {
		// a panicking handler must not leave the key claimed
		if !finished {
			g.release(context.WithoutCancel(ctx), key)
		}
	}()
	next.ServeHTTP(rec, r)
	finished = true

	if rec.statusCode() >= http.StatusInternalServerError {
		g.release(context.WithoutCancel(ctx), key)
		return nil
	}
	g.record(context.WithoutCancel(ctx), key, storedResponse{
		Fingerprint: fp,
		Status:      rec.statusCode(),
		ContentType: rec.Header().Get("Content-Type"),
		Body:        rec.body.Bytes(),
	})
	return nil
}

func (g *idempotencyGuard) claim(ctx context.Context, key, fp string) (bool, error) {
	marker, err := json.Marshal(storedResponse{Fingerprint: fp})
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, string(marker), idempotencyPendingTTL)
}

func (g *idempotencyGuard) replay(ctx context.Context, w http.ResponseWriter, key, fp string) error {
	raw, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// claim expired between SetNX and Get; the caller may retry
		return pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still being processed")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record")
	}
	switch {
	case stored.Fingerprint != fp:
		return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
	case stored.pending():
		return pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still being processed")
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
	return nil
}

func (g *idempotencyGuard) record(ctx context.Context, key string, resp storedResponse) {
	payload, err := json.Marshal(resp)
	if err == nil {
		err = g.store.Set(ctx, key, string(payload), g.ttl)
	}
	if err != nil && g.logg != nil {
		g.logg.Error(g.logg.WithField(ctx, "idempotency_key", key), "idempotency.record_failed", err)
	}
}

func (g *idempotencyGuard) release(ctx context.Context, key string) {
	if err := g.store.Del(ctx, key); err != nil && g.logg != nil {
		g.logg.Error(g.logg.WithField(ctx, "idempotency_key", key), "idempotency.release_failed", err)
	}
}

func scopeOf(r *http.Request) string {
	return fmt.Sprintf("http:%s:%s:%s", UserIDFromContext(r.Context()), r.Method, r.URL.Path)
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
