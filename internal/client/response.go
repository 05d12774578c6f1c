package client

import "github.com/tidwall/gjson"

// Response wraps a raw JSON body from the backend (or the cache) with
// convention-aware accessors. The body is kept raw; accessors parse lazily
// through gjson so callers only pay for the paths they read.
type Response struct {
	raw       []byte
	fromCache bool
}

func newResponse(raw []byte, fromCache bool) *Response {
	return &Response{raw: raw, fromCache: fromCache}
}

// Raw returns the unparsed JSON body.
func (r *Response) Raw() []byte {
	return r.raw
}

// FromCache reports whether the response was served from a cache tier
// instead of the network.
func (r *Response) FromCache() bool {
	return r.fromCache
}

// Get resolves a gjson path inside the body.
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.raw, path)
}

// HasResults reports whether the body carries the list-endpoint "results"
// array.
func (r *Response) HasResults() bool {
	return r.Get("results").Exists()
}

// Results returns the elements of the "results" array, or nil when the
// body does not carry one.
func (r *Response) Results() []gjson.Result {
	res := r.Get("results")
	if !res.Exists() {
		return nil
	}
	return res.Array()
}

// Entity returns the "entity" object mutation endpoints respond with.
func (r *Response) Entity() gjson.Result {
	return r.Get("entity")
}
