package translator

// Translate is a convenience handle bound to a single bundle, so call
// sites can translate without repeating the bundle name.
type Translate struct {
	translator *Translator
	bundle     string
}

// Bundle returns a handle bound to the named bundle.
func (t *Translator) Bundle(name string) *Translate {
	if name == "" {
		name = "default"
	}
	return &Translate{translator: t, bundle: name}
}

// Register adds translation pairs for this bundle under lang.
func (tr *Translate) Register(lang string, pairs []Pair) {
	tr.translator.Register(tr.bundle, lang, pairs, false)
}

// T translates text in this bundle with token substitution.
func (tr *Translate) T(text string, tokens ...any) string {
	return tr.translator.Translate(tr.bundle, text, tokens...)
}
