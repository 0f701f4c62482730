package router

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/server/handlers"
	"github.com/mamadbah2/dairyfeed/pkg/apperr"
	"github.com/mamadbah2/dairyfeed/pkg/redisstore"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	idempotencyTTL    = 24 * time.Hour
	// pendingTTL bounds how long a crashed request keeps its key locked.
	pendingTTL = 2 * time.Minute
)

type idempotencyRecord struct {
	Pending     bool              `json:"pending,omitempty"`
	Status      int               `json:"status,omitempty"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// idempotency replays the stored response of a request carrying an already
// seen Idempotency-Key. The key is optional; requests without it run normally.
// A key is claimed before the handler runs so a concurrent retry cannot apply
// the same stock change twice.
func idempotency(store redisstore.IdempotencyStore, logger *zap.Logger) gin.HandlerFunc {
	if store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			handlers.RespondError(c, logger, apperr.Wrap(apperr.CodeValidation, err, "Gagal membaca body permintaan"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		requestHash := hashBody(body)
		storeKey := store.IdempotencyKey(c.Request.Method+"|"+c.Request.URL.Path, key)

		pending, _ := json.Marshal(idempotencyRecord{Pending: true, RequestHash: requestHash})
		claimed, err := store.SetNX(ctx, storeKey, string(pending), pendingTTL)
		if err != nil {
			handlers.RespondError(c, logger, apperr.Wrap(apperr.CodeDependency, err, "claim idempotency key"))
			return
		}
		if !claimed {
			replay(c, store, storeKey, requestHash, logger)
			return
		}

		// The request context may already be cancelled once the client went away.
		saveCtx := context.WithoutCancel(ctx)
		release := func() {
			if err := store.Del(saveCtx, storeKey); err != nil {
				logger.Error("release idempotency key", zap.String("key", storeKey), zap.Error(err))
			}
		}

		rec := &responseCapture{ResponseWriter: c.Writer}
		c.Writer = rec
		finished := false
		// A panicking handler skips the code after Next; free the key on the way up.
		defer func() {
			if !finished {
				release()
			}
		}()
		c.Next()
		finished = true

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			release()
			return
		}

		record := idempotencyRecord{
			Status:      status,
			Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
			RequestHash: requestHash,
		}
		if ct := rec.Header().Get("Content-Type"); ct != "" {
			record.Headers = map[string]string{"Content-Type": ct}
		}
		payload, err := json.Marshal(record)
		if err != nil {
			logger.Error("marshal idempotency record", zap.Error(err))
			return
		}
		if err := store.Set(saveCtx, storeKey, string(payload), idempotencyTTL); err != nil {
			logger.Error("persist idempotency record", zap.String("key", storeKey), zap.Error(err))
		}
	}
}

func replay(c *gin.Context, store redisstore.IdempotencyStore, storeKey, requestHash string, logger *zap.Logger) {
	stored, err := store.Get(c.Request.Context(), storeKey)
	if errors.Is(err, redis.Nil) {
		handlers.RespondError(c, logger, apperr.New(apperr.CodeConflict, "Permintaan dengan Idempotency-Key ini baru saja selesai, silakan ulangi"))
		return
	}
	if err != nil {
		handlers.RespondError(c, logger, apperr.Wrap(apperr.CodeDependency, err, "check idempotency"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		handlers.RespondError(c, logger, apperr.Wrap(apperr.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		handlers.RespondError(c, logger, apperr.New(apperr.CodeIdempotency, "Idempotency-Key sudah dipakai untuk permintaan yang berbeda"))
		return
	}
	if record.Pending {
		handlers.RespondError(c, logger, apperr.New(apperr.CodeConflict, "Permintaan dengan Idempotency-Key ini sedang diproses"))
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(record.Body)
	if err != nil {
		handlers.RespondError(c, logger, apperr.Wrap(apperr.CodeDependency, err, "decode stored response"))
		return
	}
	c.Header(replayedHeader, "true")
	c.Data(record.Status, record.Headers["Content-Type"], decoded)
	c.Abort()
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type responseCapture struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseCapture) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
