package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/yungbote/learndb-studio/internal/pkg/errors"
	"github.com/yungbote/learndb-studio/internal/pkg/ctxutil"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc, retries int) *Client {
	t.Helper()
	c, err := New(Options{
		BaseURL:    "http://learndb.test/api/",
		Tokens:     StaticToken("k-123"),
		Timeout:    2 * time.Second,
		MaxRetries: retries,
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestCreateSession(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.Path != "/api/sessions" {
			t.Fatalf("unexpected %s %s", req.Method, req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer k-123" {
			t.Fatalf("Authorization=%q", got)
		}
		if got := req.Header.Get("X-Request-ID"); got != "rid-1" {
			t.Fatalf("X-Request-ID=%q", got)
		}
		return jsonResponse(200, `{"session_id":"s1","created_at":"2024-05-01T10:00:00.123456","last_activity_at":"2024-05-01T10:00:00","current_mode":"sandbox"}`), nil
	}, 0)

	s, err := c.CreateSession(ctxutil.WithRequestID(context.Background(), "rid-1"))
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.ID != "s1" || s.Mode != "sandbox" || s.CreatedAt.IsZero() {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestExecuteQuerySendsSQLAndDecodesResult(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/sessions/s1/query" {
			t.Fatalf("path=%s", req.URL.Path)
		}
		var in queryRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if in.SQL != "select 1" {
			t.Fatalf("sql=%q", in.SQL)
		}
		return jsonResponse(200, `{"success":false,"rows":[],"columns":[],"row_count":0,"error_message":"no such table","execution_time_ms":1.5}`), nil
	}, 0)

	r, err := c.ExecuteQuery(context.Background(), "s1", "select 1")
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if r.Success || r.ErrorMessage != "no such table" || r.ExecutionTimeMS != 1.5 {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestPostIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(503, `{"detail":"busy"}`), nil
	}, 3)

	_, err := c.ExecuteQuery(context.Background(), "s1", "select 1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls=%d want 1", n)
	}
}

func TestGetRetriesOnServerError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return jsonResponse(502, `{"detail":"bad gateway"}`), nil
		}
		return jsonResponse(200, `{"tables":[{"name":"t","sql_text":"CREATE TABLE t (id INTEGER PRIMARY KEY)","columns":[{"name":"id","datatype":"INTEGER","is_primary_key":true,"is_nullable":false}]}]}`), nil
	}, 2)

	tables, err := c.ListTables(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls=%d want 2", calls)
	}
	if len(tables) != 1 || len(tables[0].PrimaryKey()) != 1 {
		t.Fatalf("unexpected tables %+v", tables)
	}
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(404, `{"detail":"Challenge not found: nope"}`), nil
	}, 2)

	_, err := c.GetChallenge(context.Background(), "nope")
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
	var herr *HTTPError
	if !errors.As(err, &herr) || herr.Detail != "Challenge not found: nope" {
		t.Fatalf("detail not parsed: %v", err)
	}
}

func TestSubmitAndHintPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/challenges/c1/submit":
			if r.URL.Query().Get("session_id") != "s1" {
				t.Errorf("session_id=%q", r.URL.Query().Get("session_id"))
			}
			var in submitRequest
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in.HintsUsed != 2 {
				t.Errorf("hints_used=%d", in.HintsUsed)
			}
			_, _ = io.WriteString(w, `{"success":true,"passed":true,"feedback":"ok","xp_earned":40,"execution_time_ms":3}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/challenges/c1/hints/1":
			_, _ = io.WriteString(w, `{"hint_index":1,"hint":"use WHERE","hints_remaining":0}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/challenges/c1/setup":
			_, _ = io.WriteString(w, `{"status":"ready","message":"Challenge environment ready"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL + "/api"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := c.SetupChallenge(ctx, "c1", "s1"); err != nil {
		t.Fatalf("SetupChallenge: %v", err)
	}
	res, err := c.SubmitChallenge(ctx, "c1", "s1", "select 1", 2)
	if err != nil || !res.Passed || res.XPEarned != 40 {
		t.Fatalf("SubmitChallenge: %+v %v", res, err)
	}
	h, err := c.GetHint(ctx, "c1", 1)
	if err != nil || h.Text != "use WHERE" || h.Index != 1 {
		t.Fatalf("GetHint: %+v %v", h, err)
	}
}

func TestMalformedResponseIsError(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"categories":`), nil
	}, 0)
	if _, err := c.ListChallenges(context.Background()); err == nil || !strings.Contains(err.Error(), "malformed") {
		t.Fatalf("err=%v", err)
	}
}

func TestParseHTTPErrorValidationDetail(t *testing.T) {
	err := parseHTTPError(422, []byte(`{"detail":[{"loc":["body","sql"],"msg":"field required"},{"msg":"too short"}]}`))
	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("not an HTTPError: %T", err)
	}
	if herr.Detail != "field required; too short" || !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("unexpected %+v", herr)
	}
}

func TestRouteOf(t *testing.T) {
	got := routeOf("/sessions/abc/schema/users/preview?limit=10")
	if got != "/sessions/{session_id}/schema/{table}/preview" {
		t.Fatalf("got %q", got)
	}
}
