package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"crudkit/internal/keyhash"
	"crudkit/internal/store"
	"crudkit/internal/utils"

	"github.com/sirupsen/logrus"
)

// passwordRecord is the persisted shape of an entered password.
type passwordRecord struct {
	Password   string `json:"password"`
	Expiration int64  `json:"expiration"` // seconds since epoch
}

// passwordGate holds the session password used to prove ownership on
// mutating operations. In the default mode entered passwords persist with
// a forward-looking expiration that refreshes on every entry; in the
// in-memory mode nothing is persisted and a short TTL applies.
//
// Two gated calls racing before the first prompt resolves may both prompt;
// this matches the UI-driven usage the gate is designed for.
type passwordGate struct {
	mu        sync.Mutex
	password  string
	expiresAt int64 // seconds since epoch, 0 = nothing held

	store      store.Store
	storageKey string
	prompter   PasswordPrompter

	ttl      time.Duration
	inMemory bool
}

func newPasswordGate(s store.Store, baseURL string, prompter PasswordPrompter, ttl time.Duration, inMemory bool) *passwordGate {
	return &passwordGate{
		store:      s,
		storageKey: "crudkit.secure." + keyhash.Short(baseURL) + ".password",
		prompter:   prompter,
		ttl:        ttl,
		inMemory:   inMemory,
	}
}

// load restores a persisted, unexpired password record. Expired or
// malformed records are treated as absent.
func (g *passwordGate) load() {
	if g.inMemory {
		return
	}

	raw, err := g.store.Get(g.storageKey)
	if err != nil {
		if err != store.ErrNotFound {
			logrus.WithError(err).Warn("Password gate: could not load password record")
		}
		return
	}

	var record passwordRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		logrus.WithError(err).Warn("Password gate: password record is malformed, ignoring")
		return
	}
	if record.Password == "" || record.Expiration <= utils.Timestamp() {
		logrus.Debug("Password gate: stored password has expired")
		return
	}

	g.mu.Lock()
	g.password = record.Password
	g.expiresAt = record.Expiration
	g.mu.Unlock()
	logrus.Debug("Password gate: password restored")
}

// current returns the held password if it has not expired.
func (g *passwordGate) current() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.password == "" {
		return "", false
	}
	if g.expiresAt != 0 && g.expiresAt <= utils.Timestamp() {
		g.password = ""
		g.expiresAt = 0
		return "", false
	}
	return g.password, true
}

// save holds the password with a fresh forward-looking expiration and, in
// the persisted mode, writes the record through the store. Persistence
// failures are logged, never surfaced: the session still has the password
// in memory.
func (g *passwordGate) save(password string) {
	expiration := utils.Timestamp() + int64(g.ttl/time.Second)

	g.mu.Lock()
	g.password = password
	g.expiresAt = expiration
	g.mu.Unlock()

	if g.inMemory {
		return
	}

	record, err := json.Marshal(passwordRecord{Password: password, Expiration: expiration})
	if err != nil {
		logrus.WithError(err).Warn("Password gate: could not encode password record")
		return
	}
	if err := g.store.Set(g.storageKey, record, g.ttl); err != nil {
		logrus.WithError(err).Warn("Password gate: could not persist password record")
	}
}

// clear zeroes the in-memory and persisted password. Used on logout and on
// a server-reported bad password.
func (g *passwordGate) clear() {
	g.mu.Lock()
	g.password = ""
	g.expiresAt = 0
	g.mu.Unlock()

	if g.inMemory {
		return
	}
	if err := g.store.Delete(g.storageKey); err != nil {
		logrus.WithError(err).Warn("Password gate: could not clear password record")
	}
}

// check returns the password a gated operation should use. Verification is
// waived when the options say so; a held unexpired password is returned
// without prompting; otherwise the prompt runs once. A declined prompt
// yields a KindPromptCancelled error.
func (g *passwordGate) check(ctx context.Context, opts *CRUDRequestOptions) (string, error) {
	if opts != nil && (!opts.VerifyPassword || opts.SelfOwner) {
		password, _ := g.current()
		return password, nil
	}

	if password, ok := g.current(); ok {
		return password, nil
	}

	password, ok, err := g.prompter.Prompt(ctx)
	if err != nil {
		return "", fmt.Errorf("password prompt: %w", err)
	}
	if !ok {
		return "", &APIError{Kind: KindPromptCancelled, Message: "password prompt cancelled"}
	}

	g.save(password)
	return password, nil
}
