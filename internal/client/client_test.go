package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"crudkit/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDoer records every request and answers with a scripted responder.
type fakeDoer struct {
	mu      sync.Mutex
	calls   []recordedCall
	respond func(req *http.Request) (*http.Response, error)
}

type recordedCall struct {
	method string
	path   string
	query  url.Values
	form   url.Values
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	call := recordedCall{
		method: req.Method,
		path:   req.URL.Path,
		query:  req.URL.Query(),
	}
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		call.form, _ = url.ParseQuery(string(raw))
	}

	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()

	return d.respond(req)
}

func (d *fakeDoer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *fakeDoer) lastCall() recordedCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[len(d.calls)-1]
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func respondWith(body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, body), nil
	}
}

// countingPrompter scripts prompt outcomes and counts invocations.
type countingPrompter struct {
	mu       sync.Mutex
	password string
	cancel   bool
	prompts  int
}

func (p *countingPrompter) Prompt(context.Context) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts++
	if p.cancel {
		return "", false, nil
	}
	return p.password, true, nil
}

func (p *countingPrompter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts
}

// recordingNotifier captures alerts and toasts.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []string
	toasts []string
}

func (n *recordingNotifier) Alert(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, message)
}

func (n *recordingNotifier) Toast(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, message)
}

func (n *recordingNotifier) StartLoader(string) func() {
	return func() {}
}

// testEnv bundles a client with its scriptable collaborators.
type testEnv struct {
	client   *Client
	doer     *fakeDoer
	prompter *countingPrompter
	notifier *recordingNotifier
	store    *store.MemoryStore
	online   bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		doer:     &fakeDoer{respond: respondWith(`{"ok":true}`)},
		prompter: &countingPrompter{password: "secret123"},
		notifier: &recordingNotifier{},
		store:    store.NewMemoryStore(),
		online:   true,
	}
	t.Cleanup(func() { env.store.Close() })

	c, err := New(Config{
		BaseURL:    "https://api.example.com/",
		APIKey:     "test-key",
		AppVersion: "1.2.3",
		HTTP:       env.doer,
		Store:      env.store,
		Prompter:   env.prompter,
		Notifier:   env.notifier,
		Online:     func() bool { return env.online },
	})
	require.NoError(t, err)
	c.Init()

	env.client = c
	return env
}

// cacheOptions enables both cache tiers for a call.
func cacheOptions() *RequestOptions {
	opts := DefaultRequestOptions()
	opts.UseCache = true
	return opts
}

// TestNew_RequiresBaseURL tests constructor validation
func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

// TestGet_AugmentsQuery tests API key and version augmentation plus the
// %2B encoding of plus signs
func TestGet_AugmentsQuery(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Get(context.Background(), "get/widgets", Params{"phone": "+5211234"}, nil, nil)
	require.NoError(t, err)

	call := env.doer.lastCall()
	assert.Equal(t, "test-key", call.query.Get("key"))
	assert.Equal(t, "1.2.3", call.query.Get("_VERSION"))
	assert.Equal(t, "+5211234", call.query.Get("phone"))
}

// TestEncodeParams_PlusSign tests that the wire encoding never emits a
// bare plus sign, which the backend would decode as a space
func TestEncodeParams_PlusSign(t *testing.T) {
	env := newTestEnv(t)

	encoded := env.client.encodeParams(Params{"phone": "+521"})
	assert.Contains(t, encoded, "%2B521")
	assert.NotContains(t, encoded, "=+")
}

// TestGet_ServerErrorStatusZero tests classification of status-zero bodies
func TestGet_ServerErrorStatusZero(t *testing.T) {
	env := newTestEnv(t)
	env.doer.respond = respondWith(`{"status":0,"error":"nope"}`)

	_, err := env.client.Get(context.Background(), "get/widgets", nil, nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, "nope", apiErr.Message)
	assert.Equal(t, []string{"nope"}, env.notifier.alerts)
}

// TestGet_ShowErrorsSuppressed tests the per-call error display switch
func TestGet_ShowErrorsSuppressed(t *testing.T) {
	env := newTestEnv(t)
	env.doer.respond = respondWith(`{"status":"error","error":"nope"}`)

	opts := DefaultRequestOptions()
	opts.ShowErrors = false

	_, err := env.client.Get(context.Background(), "get/widgets", nil, opts, nil)
	require.Error(t, err)
	assert.Empty(t, env.notifier.alerts)
}

// TestGet_TransportError tests classification of transport failures
func TestGet_TransportError(t *testing.T) {
	env := newTestEnv(t)
	env.doer.respond = func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	}

	_, err := env.client.Get(context.Background(), "get/widgets", nil, nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindTransport, apiErr.Kind)
}

// TestGet_NonObjectBody tests that a body which is valid JSON but not an
// object is rejected even on a 2xx status
func TestGet_NonObjectBody(t *testing.T) {
	env := newTestEnv(t)
	env.doer.respond = respondWith(`[1,2,3]`)

	_, err := env.client.Get(context.Background(), "get/widgets", nil, nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindTransport, apiErr.Kind)
}

// TestGet_Results tests list-endpoint results extraction
func TestGet_Results(t *testing.T) {
	env := newTestEnv(t)
	env.doer.respond = respondWith(`{"results":[{"id":1},{"id":2}]}`)

	resp, err := env.client.Get(context.Background(), "read/widgets", nil, nil, nil)
	require.NoError(t, err)
	require.True(t, resp.HasResults())
	assert.Len(t, resp.Results(), 2)
}

// TestPost_SendsForm tests POST body encoding and augmentation
func TestPost_SendsForm(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Post(context.Background(), "custom/op", Params{"name": "Ana"}, nil, nil)
	require.NoError(t, err)

	call := env.doer.lastCall()
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "Ana", call.form.Get("name"))
	assert.Equal(t, "test-key", call.form.Get("key"))
}
