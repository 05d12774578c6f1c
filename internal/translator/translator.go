// Package translator provides runtime string translation keyed by content
// hash. Strings register per (bundle, language) and resolve against the
// active language, degrading silently to the source text so a lookup can
// never fail or block rendering.
package translator

import (
	"encoding/json"
	"strings"
	"sync"

	"crudkit/internal/keyhash"
	"crudkit/internal/utils"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

// DefaultLanguage is the active language of a new Translator.
const DefaultLanguage = "en"

// Pair is a single (source text, translated text) registration.
type Pair struct {
	Source      string
	Translation string
}

// Translator is a hash-keyed lookup table over a go-i18n bundle. It is
// safe for concurrent use.
type Translator struct {
	mu       sync.RWMutex
	language string
	tag      language.Tag
	bundle   *i18n.Bundle

	// registered tracks (bundle, language, hash) keys so that lookups stay
	// strictly per-language (go-i18n would otherwise fall back to the
	// bundle's default language) and so that the first registration of a
	// key wins unless explicitly overridden.
	registered map[string]struct{}

	// raw holds translations registered under language codes x/text
	// cannot parse. They have no usable tag for the bundle, so they
	// resolve directly by registration key.
	raw map[string]string
}

// New creates a Translator with English as the active language.
func New() *Translator {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	return &Translator{
		language:   DefaultLanguage,
		tag:        language.English,
		bundle:     b,
		registered: make(map[string]struct{}),
		raw:        make(map[string]string),
	}
}

// Language returns the active language code.
func (t *Translator) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.language
}

// SetLanguage sets the active language for all subsequent Translate calls.
func (t *Translator) SetLanguage(code string) {
	tag, err := language.Parse(code)
	if err != nil {
		logrus.WithField("language", code).Warn("Translator: unknown language code")
		tag = language.Und
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.language = canonical(code, tag)
	t.tag = tag
}

// Register adds translation pairs under (bundle, lang). An empty lang
// registers under the currently active language. A pair whose source hash
// is already registered is skipped unless override is set. A language
// code x/text cannot parse still registers, matching SetLanguage's
// degrade; its pairs live in the raw table instead of the bundle.
func (t *Translator) Register(bundle, lang string, pairs []Pair, override bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tag := t.tag
	code := t.language
	if lang != "" {
		parsed, err := language.Parse(lang)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"bundle":   bundle,
				"language": lang,
			}).Warn("Translator: nonstandard language code, registering without a tag")
			parsed = language.Und
		}
		tag = parsed
		code = canonical(lang, parsed)
	}

	for _, pair := range pairs {
		hash := keyhash.Sum(strings.TrimSpace(pair.Source))
		key := registrationKey(bundle, code, hash)

		if _, exists := t.registered[key]; exists && !override {
			continue
		}

		if tag == language.Und {
			t.raw[key] = pair.Translation
		} else {
			t.bundle.AddMessages(tag, &i18n.Message{
				ID:    messageID(bundle, hash),
				Other: pair.Translation,
			})
		}
		t.registered[key] = struct{}{}
	}
}

// Translate looks up text under (bundle, active language) and applies
// printf-style token substitution to the translation. Missing bundles,
// languages, or strings fall back to the source text with the same token
// substitution applied, so the result is always displayable.
func (t *Translator) Translate(bundle, text string, tokens ...any) string {
	hash := keyhash.Sum(strings.TrimSpace(text))

	t.mu.RLock()
	code := t.language
	key := registrationKey(bundle, code, hash)
	if translation, ok := t.raw[key]; ok {
		t.mu.RUnlock()
		return utils.Sprintf(translation, tokens...)
	}
	_, exists := t.registered[key]
	var localizer *i18n.Localizer
	if exists {
		localizer = i18n.NewLocalizer(t.bundle, code)
	}
	t.mu.RUnlock()

	if localizer == nil {
		return utils.Sprintf(text, tokens...)
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID: messageID(bundle, hash),
	})
	if err != nil {
		return utils.Sprintf(text, tokens...)
	}
	return utils.Sprintf(msg, tokens...)
}

// canonical prefers the tag's canonical form but keeps the caller's code
// when the tag could not be parsed, so lookups under the same raw code
// still match each other.
func canonical(code string, tag language.Tag) string {
	if tag == language.Und {
		return strings.ToLower(strings.TrimSpace(code))
	}
	return tag.String()
}

func registrationKey(bundle, lang, hash string) string {
	return bundle + "/" + lang + "/" + hash
}

func messageID(bundle, hash string) string {
	return bundle + "/" + hash
}
