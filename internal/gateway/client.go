package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/learndb-studio/internal/domain/learndb"
	"github.com/yungbote/learndb-studio/internal/pkg/ctxutil"
	"github.com/yungbote/learndb-studio/internal/pkg/httpx"
	"github.com/yungbote/learndb-studio/internal/platform/logger"
)

const (
	maxResponseBytes = 4 << 20
	retryBase        = 250 * time.Millisecond
	maxRetryWait     = 5 * time.Second
)

type Options struct {
	BaseURL    string
	Tokens     TokenSource
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
	Logger     *logger.Logger
}

// Client talks JSON over HTTP to the LearnDB service.
type Client struct {
	baseURL    string
	tokens     TokenSource
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
	log        *logger.Logger
	tracer     trace.Tracer
}

var _ Gateway = (*Client)(nil)

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:    baseURL,
		tokens:     opts.Tokens,
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: hc,
		log:        log.With("component", "gateway"),
		tracer:     otel.Tracer("github.com/yungbote/learndb-studio/internal/gateway"),
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) CreateSession(ctx context.Context) (learndb.Session, error) {
	var resp sessionResponse
	if err := c.doJSON(ctx, "CreateSession", http.MethodPost, "/sessions", struct{}{}, &resp); err != nil {
		return learndb.Session{}, err
	}
	if strings.TrimSpace(resp.SessionID) == "" {
		return learndb.Session{}, errors.New("learndb: empty session_id in response")
	}
	return resp.toDomain(), nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (learndb.Session, error) {
	var resp sessionResponse
	if err := c.doJSON(ctx, "GetSession", http.MethodGet, "/sessions/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return learndb.Session{}, err
	}
	return resp.toDomain(), nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, "DeleteSession", http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), nil, nil)
}

func (c *Client) ResetSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, "ResetSession", http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/reset", nil, nil)
}

func (c *Client) ExecuteQuery(ctx context.Context, sessionID, sql string) (*learndb.QueryResult, error) {
	var resp queryResponse
	path := "/sessions/" + url.PathEscape(sessionID) + "/query"
	if err := c.doJSON(ctx, "ExecuteQuery", http.MethodPost, path, queryRequest{SQL: sql}, &resp); err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

func (c *Client) QueryHistory(ctx context.Context, sessionID string) ([]learndb.QueryHistoryItem, error) {
	var resp historyResponse
	if err := c.doJSON(ctx, "QueryHistory", http.MethodGet, "/sessions/"+url.PathEscape(sessionID)+"/history", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]learndb.QueryHistoryItem, 0, len(resp.History))
	for _, h := range resp.History {
		out = append(out, learndb.QueryHistoryItem{
			SQL:             h.SQL,
			Timestamp:       parseTimestamp(h.Timestamp),
			Success:         h.Success,
			ExecutionTimeMS: h.ExecutionTimeMS,
			RowCount:        h.RowCount,
			ErrorMessage:    derefString(h.ErrorMessage),
		})
	}
	return out, nil
}

func (c *Client) ListTables(ctx context.Context, sessionID string) ([]learndb.Table, error) {
	var resp schemaResponse
	if err := c.doJSON(ctx, "ListTables", http.MethodGet, "/sessions/"+url.PathEscape(sessionID)+"/schema", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Tables == nil {
		resp.Tables = []learndb.Table{}
	}
	return resp.Tables, nil
}

func (c *Client) GetTable(ctx context.Context, sessionID, table string) (learndb.Table, error) {
	var resp learndb.Table
	path := "/sessions/" + url.PathEscape(sessionID) + "/schema/" + url.PathEscape(table)
	if err := c.doJSON(ctx, "GetTable", http.MethodGet, path, nil, &resp); err != nil {
		return learndb.Table{}, err
	}
	return resp, nil
}

func (c *Client) PreviewTable(ctx context.Context, sessionID, table string, limit int) (*learndb.TablePreview, error) {
	var resp learndb.TablePreview
	path := "/sessions/" + url.PathEscape(sessionID) + "/schema/" + url.PathEscape(table) + "/preview"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.doJSON(ctx, "PreviewTable", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListChallenges(ctx context.Context) (learndb.Catalog, error) {
	var resp learndb.Catalog
	if err := c.doJSON(ctx, "ListChallenges", http.MethodGet, "/challenges", nil, &resp); err != nil {
		return learndb.Catalog{}, err
	}
	return resp, nil
}

func (c *Client) GetChallenge(ctx context.Context, challengeID string) (*learndb.ChallengeDetail, error) {
	var resp learndb.ChallengeDetail
	if err := c.doJSON(ctx, "GetChallenge", http.MethodGet, "/challenges/"+url.PathEscape(challengeID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SetupChallenge(ctx context.Context, challengeID, sessionID string) error {
	var resp statusResponse
	path := "/challenges/" + url.PathEscape(challengeID) + "/setup?session_id=" + url.QueryEscape(sessionID)
	if err := c.doJSON(ctx, "SetupChallenge", http.MethodPost, path, nil, &resp); err != nil {
		return err
	}
	if s := strings.TrimSpace(resp.Status); s != "" && s != "ready" {
		return fmt.Errorf("learndb: challenge setup status=%q: %s", s, resp.Message)
	}
	return nil
}

func (c *Client) SubmitChallenge(ctx context.Context, challengeID, sessionID, sql string, hintsUsed int) (*learndb.SubmissionResult, error) {
	var resp learndb.SubmissionResult
	path := "/challenges/" + url.PathEscape(challengeID) + "/submit?session_id=" + url.QueryEscape(sessionID)
	body := submitRequest{SQL: sql, HintsUsed: hintsUsed}
	if err := c.doJSON(ctx, "SubmitChallenge", http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetHint(ctx context.Context, challengeID string, index int) (learndb.Hint, error) {
	var resp learndb.Hint
	path := "/challenges/" + url.PathEscape(challengeID) + "/hints/" + strconv.Itoa(index)
	if err := c.doJSON(ctx, "GetHint", http.MethodGet, path, nil, &resp); err != nil {
		return learndb.Hint{}, err
	}
	return resp, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var resp Health
	err := c.doJSON(ctx, "Health", http.MethodGet, "/health", nil, &resp)
	return resp, err
}

func (c *Client) Info(ctx context.Context) (Info, error) {
	var resp Info
	err := c.doJSON(ctx, "Info", http.MethodGet, "/info", nil, &resp)
	return resp, err
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, hasBody bool) error {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if rid := ctxutil.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("gateway token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return nil
}

// doJSON sends one logical request. Idempotent methods are retried on
// retryable failures; POST and DELETE are sent once.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) (err error) {
	ctx = ctxutil.Default(ctx)
	ctx, span := c.tracer.Start(ctx, "learndb."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.route", routeOf(path)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	retries := 0
	if httpx.IsIdempotent(method) {
		retries = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		status, resp, reqErr := c.roundTrip(ctx, method, path, payload, out)
		if status > 0 {
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
		if reqErr == nil {
			return nil
		}
		lastErr = reqErr
		if attempt == retries || !httpx.IsRetryableError(reqErr) || ctx.Err() != nil {
			break
		}
		wait := httpx.RetryAfterDuration(resp, httpx.Backoff(retryBase, attempt), maxRetryWait)
		c.log.Warn("learndb request retry", "op", op, "attempt", attempt+1, "wait", wait.String(), "error", reqErr)
		if err := httpx.Sleep(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, out any) (int, *http.Response, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return 0, nil, err
	}
	if err := c.setHeaders(ctx, req, payload != nil); err != nil {
		return 0, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if readErr != nil {
		return resp.StatusCode, resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, resp, parseHTTPError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, resp, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, resp, fmt.Errorf("learndb: malformed response: %w", err)
	}
	return resp.StatusCode, resp, nil
}

var routeParams = map[string]string{
	"sessions":   "{session_id}",
	"challenges": "{challenge_id}",
	"schema":     "{table}",
	"hints":      "{index}",
}

// routeOf strips the query string and replaces ids with placeholders so span
// attributes stay low-cardinality.
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if p, ok := routeParams[parts[i-1]]; ok {
			parts[i] = p
		}
	}
	return strings.Join(parts, "/")
}
