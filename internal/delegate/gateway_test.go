package delegate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ryze-backend/internal/model"
)

func localEcho(text string) string {
	return "local reply for: " + text
}

func jsonDecode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

type countingTransport struct {
	calls int64
	base  http.RoundTripper
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt64(&t.calls, 1)
	return t.base.RoundTrip(req)
}

func TestDeliverWithoutEndpointSkipsNetwork(t *testing.T) {
	g := NewGateway(Config{}, localEcho)

	// 换上计数 transport，验证本地模式下零出站请求
	counter := &countingTransport{base: http.DefaultTransport}
	g.client = &http.Client{Transport: counter}

	result := g.Deliver(context.Background(), "hello", "s1")

	assert.Equal(t, localEcho("hello"), result.Reply)
	assert.Equal(t, model.SourceLocal, result.Source)
	assert.EqualValues(t, 0, atomic.LoadInt64(&counter.calls))
}

func TestDeliverReadsResponseField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"response":"from n8n"}`))
	}))
	defer srv.Close()

	g := NewGateway(Config{WebhookURL: srv.URL, Timeout: time.Second}, localEcho)
	result := g.Deliver(context.Background(), "hi", "s1")

	assert.Equal(t, "from n8n", result.Reply)
	assert.Equal(t, model.SourceWebhook, result.Source)
}

func TestDeliverFallsBackToMessageField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"alt field"}`))
	}))
	defer srv.Close()

	g := NewGateway(Config{WebhookURL: srv.URL, Timeout: time.Second}, localEcho)
	result := g.Deliver(context.Background(), "hi", "s1")

	assert.Equal(t, "alt field", result.Reply)
	assert.Equal(t, model.SourceWebhook, result.Source)
}

func TestDeliverFallsBackOnFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"unexpected shape": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"unexpected":true}`))
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>oops</html>"))
		},
		"timeout": func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{"response":"too late"}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			var calls int64
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt64(&calls, 1)
				handler(w, r)
			}))
			defer srv.Close()

			g := NewGateway(Config{WebhookURL: srv.URL, Timeout: 50 * time.Millisecond}, localEcho)
			result := g.Deliver(context.Background(), "need a dashboard", "s1")

			assert.Equal(t, localEcho("need a dashboard"), result.Reply)
			assert.Equal(t, model.SourceLocal, result.Source)
			// 失败也只打一次，没有自动重试
			assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
		})
	}
}

func TestDeliverFallsBackWhenUnreachable(t *testing.T) {
	// 端口未监听，连接直接失败
	g := NewGateway(Config{WebhookURL: "http://127.0.0.1:1/webhook", Timeout: time.Second}, localEcho)
	result := g.Deliver(context.Background(), "hi", "s1")

	assert.Equal(t, localEcho("hi"), result.Reply)
	assert.Equal(t, model.SourceLocal, result.Source)
}

func TestDeliverSendsExpectedBody(t *testing.T) {
	var got webhookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, jsonDecode(r, &got))
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	g := NewGateway(Config{WebhookURL: srv.URL, Timeout: time.Second}, localEcho)
	g.Deliver(context.Background(), "find me a blog", "session-42")

	assert.Equal(t, "find me a blog", got.Message)
	assert.Equal(t, "session-42", got.SessionID)
	_, err := time.Parse(time.RFC3339, got.Timestamp)
	assert.NoError(t, err)
}
