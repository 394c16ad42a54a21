package rest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyTTL       = 24 * time.Hour
)

// idempotent оборачивает обработчик поддержкой Idempotency-Key.
// Первый запрос с ключом регистрируется как processing, его итоговый
// HTTP-ответ кэшируется; повтор с тем же ключом и телом получает
// сохранённый ответ без повторного выполнения обработчика.
func (s *Server) idempotent(handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.idemRepo == nil {
			handler(c)
			return
		}

		key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
		if key == "" {
			handler(c)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		reqHash := requestHash(c.Request.Method, c.FullPath(), body)

		record, err := s.idemRepo.CreateProcessing(key, reqHash, time.Now().UTC().Add(idempotencyTTL))
		if err != nil {
			s.replayIdempotency(c, err, record)
			return
		}

		recorder := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		handler(c)

		status := recorder.Status()
		cached := recorder.body.Bytes()

		if status >= http.StatusOK && status < http.StatusMultipleChoices {
			if err := s.idemRepo.MarkDone(key, cached, status); err != nil {
				s.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent success response")
			}
			return
		}
		if err := s.idemRepo.MarkFailed(key, cached, status); err != nil {
			s.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotency failure response")
		}
	}
}

// replayIdempotency обслуживает повтор запроса по уже известному ключу.
func (s *Server) replayIdempotency(c *gin.Context, createErr error, record domain.IdempotencyRecord) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		c.JSON(http.StatusConflict, errorResponse{Error: "idempotency key is already used with different request payload"})
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			if len(record.ResponseBody) == 0 {
				c.JSON(http.StatusInternalServerError, errorResponse{Error: "idempotency cache is empty"})
				return
			}
			c.Data(record.HTTPStatus, "application/json; charset=utf-8", record.ResponseBody)
		case domain.IdempotencyStatusProcessing:
			c.JSON(http.StatusConflict, errorResponse{Error: "request with the same idempotency key is already processing"})
		default:
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "unknown idempotency record status"})
		}
	default:
		s.logger.WithError(createErr).Warn("failed to create idempotency record")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to initialize idempotency request"})
	}
}

// requestHash фиксирует метод, путь и тело запроса: один ключ
// нельзя переиспользовать с другим содержимым.
func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// responseRecorder дублирует записываемый ответ в буфер для кэша.
type responseRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
