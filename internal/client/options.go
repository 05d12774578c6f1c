package client

import "time"

// RequestOptions configures a single Get or Post call.
type RequestOptions struct {
	// UseCache enables both cache tiers at once.
	UseCache bool

	// UseOfflineCache serves a cached response when the device is offline.
	UseOfflineCache bool

	// UseFastCache serves a cached response younger than FastCacheMaxAge
	// without touching the network.
	UseFastCache bool

	// ShowLoader displays a loader through the Notifier for the duration
	// of a live call.
	ShowLoader bool

	// ShowErrors surfaces classified errors through the Notifier in
	// addition to returning them.
	ShowErrors bool

	// LoaderDisplay overrides the loader text.
	LoaderDisplay string

	// FastCacheMaxAge overrides the client's fast-cache age bound for
	// this call.
	FastCacheMaxAge time.Duration
}

// DefaultRequestOptions mirrors the canonical defaults: no caching,
// loader and error display on.
func DefaultRequestOptions() *RequestOptions {
	return &RequestOptions{
		ShowLoader: true,
		ShowErrors: true,
	}
}

// normalized returns a copy with nil replaced by defaults and the UseCache
// shorthand expanded into both tiers.
func (o *RequestOptions) normalized() *RequestOptions {
	if o == nil {
		return DefaultRequestOptions()
	}
	out := *o
	if out.UseCache {
		out.UseFastCache = true
		out.UseOfflineCache = true
	}
	return &out
}

// CRUDRequestOptions configures a single CRUD operation.
type CRUDRequestOptions struct {
	RequestOptions

	// VerifyPassword gates the operation behind the password prompt.
	VerifyPassword bool

	// SelfOwner marks a creation whose new entity owns itself
	// (self-registration); it waives password verification.
	SelfOwner bool

	// SecureReads gates read operations behind the password prompt until
	// a password is cached.
	SecureReads bool

	// QueueOffline records the mutation on the offline queue when the
	// backend is unreachable, for background replay once it answers
	// again.
	QueueOffline bool
}

// DefaultCRUDRequestOptions mirrors the canonical defaults: password
// verification on, loader and error display on.
func DefaultCRUDRequestOptions() *CRUDRequestOptions {
	return &CRUDRequestOptions{
		RequestOptions: *DefaultRequestOptions(),
		VerifyPassword: true,
	}
}

// normalizedCRUD returns a copy with nil replaced by defaults.
func (o *CRUDRequestOptions) normalizedCRUD() *CRUDRequestOptions {
	if o == nil {
		return DefaultCRUDRequestOptions()
	}
	out := *o
	return &out
}
