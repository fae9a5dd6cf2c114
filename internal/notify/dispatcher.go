// Package notify delivers fire-and-forget event notifications to an
// external webhook. Delivery is best-effort: failures are logged and
// never propagate to the triggering flow.
package notify

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/quizspire/quizspire-server/internal/obslog"
)

type Dispatcher struct {
	url  string
	http *fasthttp.Client
}

// NewDispatcher returns a dispatcher posting to url. An empty url
// yields a no-op dispatcher, so call sites never need to nil-check.
func NewDispatcher(url string) *Dispatcher {
	return &Dispatcher{
		url: url,
		http: &fasthttp.Client{
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			MaxConnsPerHost: 8,
		},
	}
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	At    int64  `json:"at"`
}

// Dispatch posts {event, data} asynchronously and returns immediately.
func (d *Dispatcher) Dispatch(event string, data any) {
	if d == nil || d.url == "" {
		return
	}
	body, err := json.Marshal(envelope{Event: event, Data: data, At: time.Now().UnixMilli()})
	if err != nil {
		obslog.L().Warn("notify_marshal_error", zap.String("event", event), zap.Error(err))
		return
	}
	go d.post(event, body)
}

func (d *Dispatcher) post(event string, body []byte) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.SetRequestURI(d.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := d.http.DoTimeout(req, resp, 5*time.Second); err != nil {
		obslog.L().Warn("notify_dispatch_error", zap.String("event", event), zap.Error(err))
		return
	}
	if code := resp.StatusCode(); code >= 300 {
		obslog.L().Warn("notify_dispatch_rejected", zap.String("event", event), zap.Int("status", code))
	}
}
