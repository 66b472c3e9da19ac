package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/ofertas/internal/deals"
)

type recorded struct {
	path    string
	payload map[string]any
}

type fakeAPI struct {
	mu       sync.Mutex
	calls    []recorded
	statuses map[string][]int
	// delay holds every reply back, after the call is recorded.
	delay time.Duration
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	_ = json.NewDecoder(r.Body).Decode(&payload)

	f.mu.Lock()
	f.calls = append(f.calls, recorded{path: r.URL.Path, payload: payload})
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	status := http.StatusOK
	if queue := f.statuses[method]; len(queue) > 0 {
		status = queue[0]
		f.statuses[method] = queue[1:]
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	w.WriteHeader(status)
	if status == http.StatusOK {
		w.Write([]byte(`{"ok":true}`))
		return
	}
	w.Write([]byte(`{"ok":false,"description":"Bad Request: wrong file identifier"}`))
}

func (f *fakeAPI) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.path
	}
	return out
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	return newTestClientWithTimeout(t, api, 0)
}

func newTestClientWithTimeout(t *testing.T, api *fakeAPI, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		Token:      "TOKEN",
		ChatID:     "@ofertas",
		APIURL:     srv.URL,
		Timeout:    timeout,
		Attempts:   3,
		RetryDelay: time.Millisecond,
	}, zerolog.Nop())
}

func candidate(image string) deals.Candidate {
	p := deals.NewProduct("B001", "Pañales Dodot", "12,99€", "17,99€")
	p.Link = "https://www.amazon.es/dp/B001?tag=juegosenoferta-21"
	p.ImageURL = image
	return deals.Candidate{Product: p, Category: deals.Category{Name: "Panales", Emoji: "🧷"}}
}

func TestPublishWithPhoto(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	require.NoError(t, c.Publish(context.Background(), candidate("https://img/x.jpg")))

	require.Equal(t, []string{"/botTOKEN/sendPhoto"}, api.paths())
	p := api.calls[0].payload
	assert.Equal(t, "@ofertas", p["chat_id"])
	assert.Equal(t, "https://img/x.jpg", p["photo"])
	assert.Equal(t, "HTML", p["parse_mode"])
	assert.Contains(t, p["caption"], "OFERTA PANALES")
}

func TestPublishWithoutImageSendsText(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	require.NoError(t, c.Publish(context.Background(), candidate("")))

	require.Equal(t, []string{"/botTOKEN/sendMessage"}, api.paths())
	assert.Equal(t, false, api.calls[0].payload["disable_web_page_preview"])
}

func TestPublishFallsBackToText(t *testing.T) {
	api := &fakeAPI{statuses: map[string][]int{"sendPhoto": {http.StatusBadRequest}}}
	c := newTestClient(t, api)

	require.NoError(t, c.Publish(context.Background(), candidate("https://img/x.jpg")))

	assert.Equal(t, []string{"/botTOKEN/sendPhoto", "/botTOKEN/sendMessage"}, api.paths())
}

func TestPublishLongCaptionSendsText(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)
	cand := candidate("https://img/x.jpg")
	cand.Product.Title = strings.Repeat("a", 1100)

	require.NoError(t, c.Publish(context.Background(), cand))

	assert.Equal(t, []string{"/botTOKEN/sendMessage"}, api.paths())
}

func TestSendMessageRetriesServerErrors(t *testing.T) {
	api := &fakeAPI{statuses: map[string][]int{"sendMessage": {http.StatusBadGateway}}}
	c := newTestClient(t, api)

	require.NoError(t, c.SendMessage(context.Background(), "hola"))

	assert.Len(t, api.paths(), 2)
}

func TestSendMessageFails(t *testing.T) {
	api := &fakeAPI{statuses: map[string][]int{"sendMessage": {http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway}}}
	c := newTestClient(t, api)

	err := c.SendMessage(context.Background(), "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
	assert.NotContains(t, err.Error(), "TOKEN")
}

func TestPublishFailsWhenBothSendsFail(t *testing.T) {
	api := &fakeAPI{statuses: map[string][]int{
		"sendPhoto":   {http.StatusBadRequest},
		"sendMessage": {http.StatusBadRequest},
	}}
	c := newTestClient(t, api)

	err := c.Publish(context.Background(), candidate("https://img/x.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong file identifier")
	assert.Len(t, api.paths(), 2, "4xx responses are not retried")
}

func TestPublishLateReplyPostsOnce(t *testing.T) {
	api := &fakeAPI{delay: 80 * time.Millisecond}
	c := newTestClientWithTimeout(t, api, 40*time.Millisecond)

	err := c.Publish(context.Background(), candidate("https://img/x.jpg"))
	require.Error(t, err)

	assert.Equal(t, []string{"/botTOKEN/sendPhoto"}, api.paths(), "a timed out photo may be posted already")
}

func TestSendMessageLateReplyNotRetried(t *testing.T) {
	api := &fakeAPI{delay: 80 * time.Millisecond}
	c := newTestClientWithTimeout(t, api, 40*time.Millisecond)

	require.Error(t, c.SendMessage(context.Background(), "hola"))

	assert.Len(t, api.paths(), 1)
}

func TestPublishServerErrorDoesNotFallBack(t *testing.T) {
	api := &fakeAPI{statuses: map[string][]int{"sendPhoto": {http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway}}}
	c := newTestClient(t, api)

	err := c.Publish(context.Background(), candidate("https://img/x.jpg"))
	require.Error(t, err)

	assert.Equal(t, []string{"/botTOKEN/sendPhoto", "/botTOKEN/sendPhoto", "/botTOKEN/sendPhoto"}, api.paths())
}

func TestSendMessageRetriesRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := NewClient(Config{Token: "TOKEN", ChatID: "@ofertas", APIURL: addr, Attempts: 2, RetryDelay: time.Millisecond}, zerolog.Nop())

	err := c.SendMessage(context.Background(), "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
	assert.NotContains(t, err.Error(), "TOKEN")
}

func TestIsRefused(t *testing.T) {
	assert.True(t, IsRefused(fmt.Errorf("can't send photo: %w", &APIError{StatusCode: http.StatusBadRequest})))
	assert.True(t, IsRefused(&APIError{StatusCode: http.StatusTooManyRequests}))
	assert.False(t, IsRefused(&APIError{StatusCode: http.StatusBadGateway}))
	assert.False(t, IsRefused(context.DeadlineExceeded))
}
