package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestTranslate_RoundTrip tests register + setLanguage + translate
func TestTranslate_RoundTrip(t *testing.T) {
	tr := New()
	tr.Register("Flipbook", "es", []Pair{{Source: "Save", Translation: "Guardar"}}, false)

	tr.SetLanguage("es")
	assert.Equal(t, "Guardar", tr.Translate("Flipbook", "Save"))
}

// TestTranslate_UnregisteredLanguage tests fallback to the source text
func TestTranslate_UnregisteredLanguage(t *testing.T) {
	tr := New()
	tr.Register("Flipbook", "es", []Pair{{Source: "Save", Translation: "Guardar"}}, false)

	tr.SetLanguage("fr")
	assert.Equal(t, "Save", tr.Translate("Flipbook", "Save"))
}

// TestTranslate_UnregisteredBundle tests fallback for an unknown bundle
func TestTranslate_UnregisteredBundle(t *testing.T) {
	tr := New()
	tr.Register("Flipbook", "es", []Pair{{Source: "Save", Translation: "Guardar"}}, false)

	tr.SetLanguage("es")
	assert.Equal(t, "Save", tr.Translate("Settings", "Save"))
}

// TestTranslate_UnregisteredString tests fallback for an unknown string
func TestTranslate_UnregisteredString(t *testing.T) {
	tr := New()
	tr.Register("Flipbook", "es", []Pair{{Source: "Save", Translation: "Guardar"}}, false)

	tr.SetLanguage("es")
	assert.Equal(t, "Cancel", tr.Translate("Flipbook", "Cancel"))
}

// TestTranslate_Tokens tests printf token substitution on both paths
func TestTranslate_Tokens(t *testing.T) {
	tr := New()
	tr.Register("Flipbook", "es", []Pair{{Source: "Page %d of %d", Translation: "Página %d de %d"}}, false)

	tr.SetLanguage("es")
	assert.Equal(t, "Página 2 de 10", tr.Translate("Flipbook", "Page %d of %d", 2, 10))

	tr.SetLanguage("fr")
	assert.Equal(t, "Page 2 of 10", tr.Translate("Flipbook", "Page %d of %d", 2, 10))
}

// TestTranslate_TrimmedLookup tests that surrounding whitespace does not
// change the lookup key
func TestTranslate_TrimmedLookup(t *testing.T) {
	tr := New()
	tr.Register("Flipbook", "es", []Pair{{Source: "  Save  ", Translation: "Guardar"}}, false)

	tr.SetLanguage("es")
	assert.Equal(t, "Guardar", tr.Translate("Flipbook", "Save"))
}

// TestRegister_FirstWins tests that re-registration without override is a no-op
func TestRegister_FirstWins(t *testing.T) {
	tr := New()
	tr.Register("Flipbook", "es", []Pair{{Source: "Save", Translation: "Guardar"}}, false)
	tr.Register("Flipbook", "es", []Pair{{Source: "Save", Translation: "Almacenar"}}, false)

	tr.SetLanguage("es")
	assert.Equal(t, "Guardar", tr.Translate("Flipbook", "Save"))
}

// TestRegister_Override tests that override replaces an existing entry
func TestRegister_Override(t *testing.T) {
	tr := New()
	tr.Register("Flipbook", "es", []Pair{{Source: "Save", Translation: "Guardar"}}, false)
	tr.Register("Flipbook", "es", []Pair{{Source: "Save", Translation: "Almacenar"}}, true)

	tr.SetLanguage("es")
	assert.Equal(t, "Almacenar", tr.Translate("Flipbook", "Save"))
}

// TestRegister_DefaultsToActiveLanguage tests registering with an empty
// language code
func TestRegister_DefaultsToActiveLanguage(t *testing.T) {
	tr := New()
	tr.SetLanguage("es")
	tr.Register("Flipbook", "", []Pair{{Source: "Save", Translation: "Guardar"}}, false)

	assert.Equal(t, "Guardar", tr.Translate("Flipbook", "Save"))
}

// TestRegister_NonstandardCode tests that registration under a language
// code x/text cannot parse still resolves after SetLanguage to that code
func TestRegister_NonstandardCode(t *testing.T) {
	tr := New()
	tr.Register("Flipbook", "old spanish", []Pair{{Source: "Save", Translation: "Guardar"}}, false)

	tr.SetLanguage("old spanish")
	assert.Equal(t, "Guardar", tr.Translate("Flipbook", "Save"))
	assert.Equal(t, "Save", tr.Translate("Settings", "Save"))
}

// TestRegister_NonstandardCodeFirstWins tests first-wins and override
// semantics for the tagless registration path
func TestRegister_NonstandardCodeFirstWins(t *testing.T) {
	tr := New()
	tr.Register("Flipbook", "old spanish", []Pair{{Source: "Save", Translation: "Guardar"}}, false)
	tr.Register("Flipbook", "old spanish", []Pair{{Source: "Save", Translation: "Almacenar"}}, false)

	tr.SetLanguage("old spanish")
	assert.Equal(t, "Guardar", tr.Translate("Flipbook", "Save"))

	tr.Register("Flipbook", "old spanish", []Pair{{Source: "Save", Translation: "Almacenar"}}, true)
	assert.Equal(t, "Almacenar", tr.Translate("Flipbook", "Save"))
}

// TestSetLanguage_Getter tests the Language accessor
func TestSetLanguage_Getter(t *testing.T) {
	tr := New()
	assert.Equal(t, DefaultLanguage, tr.Language())

	tr.SetLanguage("es")
	assert.Equal(t, "es", tr.Language())
}

// TestBundleHandle tests the bound-bundle convenience handle
func TestBundleHandle(t *testing.T) {
	tr := New()
	fb := tr.Bundle("Flipbook")
	fb.Register("es", []Pair{{Source: "Save", Translation: "Guardar"}})

	tr.SetLanguage("es")
	assert.Equal(t, "Guardar", fb.T("Save"))
	assert.Equal(t, "Cancel", fb.T("Cancel"))
}
