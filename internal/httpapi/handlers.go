package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrz1836/entropool/internal/device"
	"github.com/mrz1836/entropool/internal/output"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// SessionHeader carries the id of the session that served a request.
const SessionHeader = "X-Entropool-Session"

// DiscardResponse is the body returned by POST /v1/random.
type DiscardResponse struct {
	Discarded int64 `json:"discarded"`
}

func (s *Server) health(c *gin.Context) {
	if s.src.Closed() {
		s.fail(c, poolerr.ErrShutdown)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) notFound(c *gin.Context) {
	s.fail(c, poolerr.WithDetails(poolerr.ErrNotFound, map[string]string{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}))
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.src.Status())
}

func (s *Server) random(c *gin.Context) {
	n, err := s.parseCount(c.Query("n"))
	if err != nil {
		s.fail(c, err)
		return
	}
	enc, err := output.ParseEncoding(c.Query("encoding"))
	if err != nil {
		s.fail(c, err)
		return
	}

	sess := device.Open(s.src)
	defer func() { _ = sess.Close() }()

	buf := make([]byte, n)
	if _, err := sess.Read(buf); err != nil {
		s.fail(c, err)
		return
	}

	c.Header(SessionHeader, sess.ID())
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, enc.ContentType(), output.Encode(buf, enc))
}

func (s *Server) discard(c *gin.Context) {
	sess := device.Open(s.src)
	defer func() { _ = sess.Close() }()

	body := http.MaxBytesReader(c.Writer, c.Request.Body, int64(s.cfg.MaxRequestBytes))
	n, err := io.Copy(sess, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = poolerr.WithDetails(poolerr.ErrRequestTooLarge, map[string]string{
				"max": strconv.Itoa(s.cfg.MaxRequestBytes),
			})
		}
		s.fail(c, err)
		return
	}

	c.Header(SessionHeader, sess.ID())
	c.JSON(http.StatusOK, DiscardResponse{Discarded: n})
}

func (s *Server) parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, poolerr.WithSuggestion(
			poolerr.WithDetails(poolerr.ErrInvalidInput, map[string]string{"n": raw}),
			"pass the byte count as a non-negative integer, e.g. ?n=32",
		)
	}
	if n > s.cfg.MaxRequestBytes {
		return 0, poolerr.WithDetails(poolerr.ErrRequestTooLarge, map[string]string{
			"n":   raw,
			"max": strconv.Itoa(s.cfg.MaxRequestBytes),
		})
	}
	return n, nil
}

func (s *Server) rateLimit(c *gin.Context) {
	if s.limiter.Allow(c.ClientIP()) {
		c.Next()
		return
	}
	s.src.Counters().RecordRateLimited()
	c.Header("Retry-After", "1")
	s.fail(c, poolerr.WithDetails(poolerr.ErrRateLimited, map[string]string{"client": c.ClientIP()}))
}

func (s *Server) fail(c *gin.Context, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		s.logger.Debug("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, output.NewErrorOutput(err))
}

// StatusCode maps an error to its HTTP status.
func StatusCode(err error) int {
	switch poolerr.Code(err) {
	case poolerr.ErrInvalidInput.Code, poolerr.ErrInvalidFormat.Code, poolerr.ErrRequestTooLarge.Code:
		return http.StatusBadRequest
	case poolerr.ErrNotFound.Code:
		return http.StatusNotFound
	case poolerr.ErrRateLimited.Code:
		return http.StatusTooManyRequests
	case poolerr.ErrShutdown.Code, poolerr.ErrPoolExhausted.Code:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
