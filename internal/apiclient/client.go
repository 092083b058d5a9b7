package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Freeeeeet/medbooking_bot/internal/metrics"
	"github.com/Freeeeeet/medbooking_bot/internal/model"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultRetryBase = 200 * time.Millisecond
	maxGetRetries    = 2
	maxResponseBytes = 1 << 20

	// DateLayout формат даты без времени (fecha)
	DateLayout = "2006-01-02"
	// WireTimeLayout формат локальной метки времени, которую ждёт бэкенд
	WireTimeLayout = "2006-01-02T15:04:05"
)

// UnauthorizedFunc вызывается, когда бэкенд ответил 401 на запрос сессии
type UnauthorizedFunc func(ctx context.Context, session *model.Session)

// Config параметры подключения к бэкенду клиники
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Location *time.Location

	// TracerProvider источник спанов. По умолчанию глобальный провайдер otel:
	// пока приложение его не установило, спаны ничего не записывают.
	TracerProvider trace.TracerProvider
}

// Client HTTP клиент REST API клиники. Сам по себе не хранит токенов:
// запросы от имени пользователя идут через SessionClient.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	location       *time.Location
	logger         *zap.Logger
	metrics        *metrics.APIMetrics
	tracer         trace.Tracer
	retryBase      time.Duration
	onUnauthorized UnauthorizedFunc
}

// NewClient создаёт клиент API
func NewClient(cfg Config, logger *zap.Logger, m *metrics.APIMetrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		location:   loc,
		logger:     logger,
		metrics:    m,
		tracer:     tp.Tracer("github.com/Freeeeeet/medbooking_bot/internal/apiclient"),
		retryBase:  defaultRetryBase,
	}
}

// OnUnauthorized устанавливает обработчик ответов 401
func (c *Client) OnUnauthorized(fn UnauthorizedFunc) {
	c.onUnauthorized = fn
}

// Location часовой пояс, в котором интерпретируются даты бэкенда
func (c *Client) Location() *time.Location {
	return c.location
}

// For возвращает клиент, привязанный к сессии пользователя
func (c *Client) For(session *model.Session) *SessionClient {
	return &SessionClient{client: c, session: session}
}

type request struct {
	op         string
	method     string
	path       string
	query      url.Values
	body       any
	idempotent bool
}

// do выполняет запрос, повторяя идемпотентные при сетевых ошибках и 5xx
func (c *Client) do(ctx context.Context, session *model.Session, req request) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "apiclient."+req.op, trace.WithAttributes(
		attribute.String("http.method", req.method),
		attribute.String("http.route", req.path),
	))
	defer span.End()

	backoff := retry.WithMaxRetries(0, retry.NewExponential(c.retryBase))
	if req.idempotent {
		backoff = retry.WithMaxRetries(maxGetRetries, retry.NewExponential(c.retryBase))
	}

	var raw []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var attemptErr error
		raw, attemptErr = c.attempt(ctx, session, req)
		var te *TransportError
		if attemptErr != nil && errors.As(attemptErr, &te) && te.retryable() {
			return retry.RetryableError(attemptErr)
		}
		return attemptErr
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if errors.Is(err, ErrUnauthorized) && session != nil && c.onUnauthorized != nil {
			c.onUnauthorized(ctx, session)
		}
		return nil, err
	}

	return raw, nil
}

func (c *Client) attempt(ctx context.Context, session *model.Session, req request) ([]byte, error) {
	started := time.Now()
	status := "error"
	defer func() {
		c.metrics.ObserveRequest(req.op, status, time.Since(started).Seconds())
	}()

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", req.op, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", req.op, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if session != nil && session.AccessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+session.AccessToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("API request failed",
			zap.String("op", req.op),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &TransportError{Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Op: req.op, StatusCode: resp.StatusCode, Err: err}
	}

	status = fmt.Sprintf("%d", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("API request rejected",
			zap.String("op", req.op),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode))
		return nil, &TransportError{
			Op:         req.op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}

	c.logger.Debug("API request completed",
		zap.String("op", req.op),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	return raw, nil
}

// errorMessage достаёт текст ошибки из тела ответа
func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Mensaje string `json:"mensaje"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := firstNonEmpty(body.Error, body.Message, body.Mensaje); msg != "" {
			return msg
		}
	}
	return truncate(strings.TrimSpace(string(raw)), 200)
}
