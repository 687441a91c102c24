// Package idempotency replays the stored response when a client repeats a
// mutating request with the same Idempotency-Key, so a double-clicked
// checkout places one order.
package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"musa/session"
	"musa/utils"
)

const (
	Header  = "Idempotency-Key"
	maxBody = 1 << 20
	ttl     = 24 * time.Hour

	settleTimeout = 5 * time.Second
)

func requestHash(r *http.Request, body []byte, sessionID string) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + sessionID + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// captureWriter records the status and body written by the handler.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

// Guard wraps a handler that already has a session in its context. Without
// the header the request passes through. Keys are scoped to the session.
// Server failures release the key so the client may retry.
func Guard(store Store) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			key := r.Header.Get(Header)
			if key == "" {
				next(w, r, ps)
				return
			}
			sessionID := session.FromContext(r.Context()).ID

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "failed to read request body")
				return
			}
			if len(body) > maxBody {
				utils.RespondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			now := time.Now()
			rec := Record{
				Key:         sessionID + ":" + key,
				Method:      r.Method,
				Path:        r.URL.Path,
				SessionID:   sessionID,
				RequestHash: requestHash(r, body, sessionID),
				CreatedAt:   now,
				ExpiresAt:   now.Add(ttl),
			}

			ctx := r.Context()
			err = store.Reserve(ctx, rec)
			switch {
			case err == nil:
				cw := &captureWriter{ResponseWriter: w}
				next(cw, r, ps)
				// the client may be gone by now; the record must still settle
				done, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
				defer cancel()
				if cw.status >= 500 {
					err = store.Release(done, rec.Key)
				} else {
					err = store.Complete(done, rec.Key, cw.status, cw.buf.Bytes())
				}
				if err != nil {
					log.Printf("idempotency %s: %v", rec.Key, err)
				}
				return
			case !errors.Is(err, ErrExists):
				log.Printf("idempotency %s: %v", rec.Key, err)
				utils.RespondWithError(w, http.StatusServiceUnavailable, "idempotency lookup error")
				return
			}

			existing, err := store.Find(ctx, rec.Key)
			if err != nil {
				log.Printf("idempotency %s: %v", rec.Key, err)
				utils.RespondWithError(w, http.StatusServiceUnavailable, "idempotency lookup error")
				return
			}
			if existing.RequestHash != rec.RequestHash {
				utils.RespondWithError(w, http.StatusConflict, "Idempotency-Key was used for a different request")
				return
			}
			if !existing.Done {
				utils.RespondWithError(w, http.StatusConflict, "This request is already being processed")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(existing.Status)
			w.Write(existing.Body)
		}
	}
}
