// Package client implements the CRUD API client: a single façade over one
// backend that binds together response caching, password-gated mutation,
// request coalescing, and the backend's verb-prefix path convention.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"crudkit/internal/keyhash"
	"crudkit/internal/queue"
	"crudkit/internal/store"
	"crudkit/internal/translator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Params is a request parameter bag. Values travel as query parameters on
// GET and as a form body on POST.
type Params map[string]string

// User-facing messages, translatable under the "APIClient" bundle.
const (
	msgGenericError    = "Sorry, an error occurred, please try again later."
	msgConnectionError = "Sorry, your device is offline. Please check your Internet connection and try again."
	msgOffline         = "Offline"
)

// translationBundle is the bundle the client's own messages resolve under.
const translationBundle = "APIClient"

// codePasswordIncorrect is the structured code the backend sends when the
// supplied owner password is wrong. It invalidates the stored password.
const codePasswordIncorrect = "passwordIncorrect"

// Config assembles a Client. BaseURL is required; every other collaborator
// has a working default.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.example.com/".
	BaseURL string

	// APIKey is sent as the "key" parameter on every request.
	APIKey string

	// AppVersion, when set, is sent as the "_VERSION" parameter.
	AppVersion string

	// FastCacheMaxAge bounds fast-cache staleness. Defaults to one minute.
	FastCacheMaxAge time.Duration

	// PasswordTTL is the persisted password lifetime. Defaults to 30 days.
	PasswordTTL time.Duration

	// PasswordInMemory switches the password gate to in-memory retention
	// with PasswordMemoryTTL expiry (default 15 minutes).
	PasswordInMemory  bool
	PasswordMemoryTTL time.Duration

	// QueueInterval is how often the offline mutation queue attempts to
	// drain. Defaults to 5 seconds.
	QueueInterval time.Duration

	// HTTP issues the actual requests. Defaults to an *http.Client with a
	// 30 second timeout.
	HTTP Doer

	// Store persists the response cache and queues.
	Store store.Store

	// SecureStore, when set, holds the password record instead of Store.
	SecureStore store.Store

	Prompter   PasswordPrompter
	Notifier   Notifier
	Online     OnlineFunc
	Translator *translator.Translator
}

// inflightCall is one outstanding GET that identical concurrent calls
// join instead of issuing their own round-trip.
type inflightCall struct {
	done chan struct{}
	resp *Response
	err  error
}

// Client is the API client. All methods are safe for concurrent use. The
// in-memory cache and the in-flight table are owned exclusively by the
// Client; nothing mutates them except its public operations.
type Client struct {
	baseURL         string
	apiKey          string
	appVersion      string
	fastCacheMaxAge time.Duration

	http     Doer
	notifier Notifier
	online   OnlineFunc
	t        *translator.Translate

	cache     *responseCache
	gate      *passwordGate
	mutations *queue.Queue[queue.Envelope]

	userMu sync.RWMutex
	user   *User

	inflightMu sync.Mutex
	inflight   map[string]*inflightCall
}

// New builds a Client from cfg, filling in defaults for absent
// collaborators.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("client: invalid BaseURL: %w", err)
	}

	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Prompter == nil {
		cfg.Prompter = noPrompter{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = logNotifier{}
	}
	if cfg.Online == nil {
		cfg.Online = func() bool { return true }
	}
	if cfg.Translator == nil {
		cfg.Translator = translator.New()
	}
	if cfg.FastCacheMaxAge <= 0 {
		cfg.FastCacheMaxAge = time.Minute
	}
	if cfg.PasswordTTL <= 0 {
		cfg.PasswordTTL = 30 * 24 * time.Hour
	}
	if cfg.PasswordMemoryTTL <= 0 {
		cfg.PasswordMemoryTTL = 15 * time.Minute
	}

	passwordStore := cfg.SecureStore
	if passwordStore == nil {
		passwordStore = cfg.Store
	}
	passwordTTL := cfg.PasswordTTL
	if cfg.PasswordInMemory {
		passwordTTL = cfg.PasswordMemoryTTL
	}

	c := &Client{
		baseURL:         cfg.BaseURL,
		apiKey:          cfg.APIKey,
		appVersion:      cfg.AppVersion,
		fastCacheMaxAge: cfg.FastCacheMaxAge,
		http:            cfg.HTTP,
		notifier:        cfg.Notifier,
		online:          cfg.Online,
		t:               cfg.Translator.Bundle(translationBundle),
		cache:           newResponseCache(cfg.Store, cfg.BaseURL),
		gate:            newPasswordGate(passwordStore, cfg.BaseURL, cfg.Prompter, passwordTTL, cfg.PasswordInMemory),
		inflight:        make(map[string]*inflightCall),
	}
	c.mutations = queue.New(queue.Options[queue.Envelope]{
		Name:     "mutations." + keyhash.Short(cfg.BaseURL),
		Store:    cfg.Store,
		Interval: cfg.QueueInterval,
		Process:  c.replayMutations,
	})
	return c, nil
}

// Init loads the persisted response cache and password record. Call once
// after construction, before issuing requests.
func (c *Client) Init() {
	c.cache.load()
	c.gate.load()
}

// EndpointURL resolves an endpoint path against the backend base URL.
func (c *Client) EndpointURL(endpoint string) string {
	return strings.TrimSuffix(c.baseURL, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}

// User returns a copy of the current session user, or nil.
func (c *Client) User() *User {
	c.userMu.RLock()
	defer c.userMu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// SetUser atomically replaces the session user.
func (c *Client) SetUser(user *User) {
	c.userMu.Lock()
	defer c.userMu.Unlock()
	c.user = user
}

// Password returns the currently held, unexpired owner password, if any.
func (c *Client) Password() (string, bool) {
	return c.gate.current()
}

// ClearPassword zeroes the in-memory and persisted owner password.
func (c *Client) ClearPassword() {
	c.gate.clear()
}

// Logout clears the session user and the stored password.
func (c *Client) Logout() {
	c.SetUser(nil)
	c.gate.clear()
}

// ClearCache invalidates cached responses: the listed endpoints, or the
// whole cache when none are given.
func (c *Client) ClearCache(endpoints ...string) {
	c.cache.invalidate(endpoints...)
}

// Get issues a GET, honoring the cache tiers in opts. Concurrent Gets with
// an identical endpoint and parameter fingerprint are coalesced into a
// single network call whose outcome every caller receives.
func (c *Client) Get(ctx context.Context, endpoint string, params Params, opts *RequestOptions, headers http.Header) (*Response, error) {
	o := opts.normalized()
	if params == nil {
		params = Params{}
	}

	if o.UseFastCache || o.UseOfflineCache {
		entry, cached := c.cache.get(endpoint, params)

		// Fast tier first: a fresh entry short-circuits before the
		// connectivity probe runs.
		if o.UseFastCache && cached {
			maxAge := o.FastCacheMaxAge
			if maxAge <= 0 {
				maxAge = c.fastCacheMaxAge
			}
			if entry.age() <= maxAge {
				logrus.WithField("endpoint", endpoint).Debug("Serving from fast cache")
				return newResponse(entry.raw, true), nil
			}
		}

		if !c.online() {
			if o.UseOfflineCache && cached {
				c.notifier.Toast(c.t.T(msgOffline))
				logrus.WithField("endpoint", endpoint).Info("Offline, serving from cache")
				return newResponse(entry.raw, true), nil
			}
			return nil, c.fail(o, &APIError{Kind: KindConnectivity, Message: c.t.T(msgConnectionError)})
		}
	}

	key := keyhash.Sum(endpoint) + ":" + keyhash.Params(params)

	c.inflightMu.Lock()
	if call, exists := c.inflight[key]; exists {
		c.inflightMu.Unlock()
		select {
		case <-call.done:
			return call.resp, call.err
		case <-ctx.Done():
			return nil, c.fail(o, &APIError{Kind: KindTransport, Message: c.t.T(msgGenericError), Cause: ctx.Err()})
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.inflightMu.Unlock()

	resp, err := c.liveGet(ctx, endpoint, params, o, headers)

	call.resp, call.err = resp, err
	c.inflightMu.Lock()
	delete(c.inflight, key)
	c.inflightMu.Unlock()
	close(call.done)

	return resp, err
}

// liveGet performs the actual GET round-trip and fills the cache on
// success. The cache write happens before the result is released to any
// caller.
func (c *Client) liveGet(ctx context.Context, endpoint string, params Params, o *RequestOptions, headers http.Header) (*Response, error) {
	endpointURL := c.EndpointURL(endpoint) + "?" + c.encodeParams(params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, c.fail(o, &APIError{Kind: KindTransport, Message: c.t.T(msgGenericError)})
	}
	applyHeaders(req, headers)

	resp, apiErr := c.roundTrip(req, o)
	if apiErr != nil {
		return nil, c.fail(o, apiErr)
	}

	c.cache.put(endpoint, params, resp.raw)
	return resp, nil
}

// Post issues a POST with a form-encoded body. Responses are never cached
// and identical calls are never coalesced.
func (c *Client) Post(ctx context.Context, endpoint string, params Params, opts *RequestOptions, headers http.Header) (*Response, error) {
	o := opts.normalized()
	if params == nil {
		params = Params{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.EndpointURL(endpoint), strings.NewReader(c.encodeParams(params)))
	if err != nil {
		return nil, c.fail(o, &APIError{Kind: KindTransport, Message: c.t.T(msgGenericError)})
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	applyHeaders(req, headers)

	resp, apiErr := c.roundTrip(req, o)
	if apiErr != nil {
		return nil, c.fail(o, apiErr)
	}
	return resp, nil
}

// roundTrip runs one HTTP exchange and classifies the outcome.
func (c *Client) roundTrip(req *http.Request, o *RequestOptions) (*Response, *APIError) {
	requestID := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     req.Method,
		"url":        req.URL.Path,
	})

	if o.ShowLoader {
		stop := c.notifier.StartLoader(o.LoaderDisplay)
		defer stop()
	}

	log.Debug("Issuing request")
	httpResp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("Transport failure")
		return nil, &APIError{Kind: KindTransport, Message: c.t.T(msgGenericError), Cause: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		log.WithError(err).Warn("Could not read response body")
		return nil, &APIError{Kind: KindTransport, Message: c.t.T(msgGenericError), Cause: err}
	}

	if apiErr := c.classify(httpResp.StatusCode, body, log); apiErr != nil {
		return nil, apiErr
	}

	log.Debug("Request succeeded")
	return newResponse(body, false), nil
}

// classify inspects a response body for the backend's error markers:
// an "error" field, a "status" of 0 or "error", and an optional
// machine-readable "code". A passwordIncorrect code clears the stored
// password as a side effect.
//
// Every endpoint of the backend contract answers with a JSON object, so a
// body that is valid JSON but not an object (a bare array or scalar) is
// rejected as a transport error even on a 2xx status. This is stricter
// than accepting any well-formed JSON; it keeps non-object bodies out of
// the cache and out of the Response accessors, which all assume an
// object.
func (c *Client) classify(statusCode int, body []byte, log *logrus.Entry) *APIError {
	parsed := gjson.ParseBytes(body)

	if !parsed.IsObject() {
		if statusCode >= 400 {
			log.WithField("status", statusCode).Warn("HTTP error without JSON body")
			return &APIError{Kind: KindTransport, Message: c.t.T(msgGenericError)}
		}
		log.Warn("Response body is not a JSON object")
		return &APIError{Kind: KindTransport, Message: c.t.T(msgGenericError)}
	}

	status := parsed.Get("status")
	errField := parsed.Get("error")
	failed := errField.Exists() ||
		(status.Exists() && (status.String() == "0" || status.String() == "error")) ||
		statusCode >= 400

	if !failed {
		return nil
	}

	message := errField.String()
	if message == "" {
		message = parsed.Get("message").String()
	}
	if message == "" {
		message = c.t.T(msgGenericError)
	}

	code := parsed.Get("code").String()
	kind := KindServer
	if code == codePasswordIncorrect {
		log.Info("Server rejected the stored password, clearing it")
		c.gate.clear()
		kind = KindPasswordIncorrect
	}

	log.WithFields(logrus.Fields{"code": code, "status": status.String()}).Warn("Server error: ", message)
	return &APIError{
		Kind:     kind,
		Message:  message,
		Code:     code,
		Response: newResponse(body, false),
	}
}

// fail applies the error display policy and returns err for the caller.
func (c *Client) fail(o *RequestOptions, err *APIError) error {
	if o.ShowErrors {
		c.notifier.Alert(err.Message)
	}
	return err
}

// encodeParams builds the wire encoding of params plus the fixed API key
// and, when known, the app version. url.Values.Encode escapes "+" as
// "%2B", which the backend requires; it also emits keys in sorted order,
// keeping encodings deterministic.
func (c *Client) encodeParams(params Params) string {
	values := url.Values{}
	values.Set("key", c.apiKey)
	if c.appVersion != "" {
		values.Set("_VERSION", c.appVersion)
	}
	for name, value := range params {
		values.Set(name, value)
	}
	return values.Encode()
}

func applyHeaders(req *http.Request, headers http.Header) {
	for name, vals := range headers {
		for _, v := range vals {
			req.Header.Add(name, v)
		}
	}
}
