package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pathway-advisor/internal/apperr"
	"github.com/jonathan/pathway-advisor/internal/server/ratelimit"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

// requestEntropy is shared so IDs issued within one millisecond still sort
// in issue order. MonotonicEntropy is not safe for concurrent use.
var (
	requestEntropy   = ulid.Monotonic(rand.Reader, 0)
	requestEntropyMu sync.Mutex
)

// newRequestID returns a time-ordered request ID.
func newRequestID() string {
	requestEntropyMu.Lock()
	defer requestEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), requestEntropy).String()
}

// requestID returns the ID assigned by the RequestID middleware.
func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// sessionID reads the caller's session from SessionHeader.
func sessionID(c echo.Context) (uuid.UUID, error) {
	raw := c.Request().Header.Get(SessionHeader)
	if raw == "" {
		return uuid.Nil, apperr.InvalidRequest("session", SessionHeader+" header is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.InvalidRequest("session", SessionHeader+" header is not a valid session id")
	}
	return id, nil
}

// pathID parses a UUID path parameter.
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.InvalidRequest("path", name+" is not a valid id")
	}
	return id, nil
}

// writeError renders err using the public view of the error taxonomy.
func writeError(c echo.Context, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("ERROR: [%s] %s %s: %v", requestID(c), c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, map[string]any{
		"error":      apperr.Public(err),
		"request_id": requestID(c),
	})
}

// badRequest reports a body or query that could not be decoded.
func badRequest(c echo.Context, msg string) error {
	return writeError(c, apperr.InvalidRequest("decode", msg))
}

// handleHTTPError renders echo's own errors (unknown routes, body limits,
// panics) in the same envelope as handler errors.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := apperr.CodeInternal
		switch he.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			code = apperr.CodeNotFound
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
			code = apperr.CodeInvalidRequest
		}
		_ = c.JSON(he.Code, map[string]any{
			"error":      map[string]any{"code": code, "message": http.StatusText(he.Code)},
			"request_id": requestID(c),
		})
		return
	}
	_ = writeError(c, err)
}

// withRateLimit charges the client IP on every request and, when a session
// header is presented, the session as well. Session IDs are client-supplied,
// so they never replace the IP bucket.
func (s *Server) withRateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path, method := c.Request().URL.Path, c.Request().Method

		allowed, info := s.rateLimiter.Allow("ip:"+c.RealIP(), path, method)
		if allowed {
			if id, err := uuid.Parse(c.Request().Header.Get(SessionHeader)); err == nil {
				var sessInfo ratelimit.Info
				allowed, sessInfo = s.rateLimiter.Allow("session:"+id.String(), path, method)
				if !allowed || sessInfo.Remaining < info.Remaining {
					info = sessInfo
				}
			}
		}

		setRateLimitHeaders(c, info)
		if !allowed {
			return rateLimitResponse(c, info)
		}
		return next(c)
	}
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(c echo.Context, info ratelimit.Info) {
	if info.Limit > 0 {
		h := c.Response().Header()
		h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func rateLimitResponse(c echo.Context, info ratelimit.Info) error {
	response := map[string]any{
		"error": map[string]any{
			"code":    "RATE_LIMITED",
			"message": "Rate limit exceeded. Please try again later.",
		},
		"limit":      info.Limit,
		"remaining":  info.Remaining,
		"request_id": requestID(c),
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Path=%s Limit=%d Remaining=%d", c.Request().URL.Path, info.Limit, info.Remaining)
	return c.JSON(http.StatusTooManyRequests, response)
}
