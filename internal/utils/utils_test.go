package utils

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// TestTimestamp_Now tests that Timestamp tracks the wall clock in seconds
func TestTimestamp_Now(t *testing.T) {
	ts := Timestamp()
	now := time.Now().Unix()
	assert.InDelta(t, now, ts, 2)
}

// TestSprintf_Tokens tests printf-style substitution
func TestSprintf_Tokens(t *testing.T) {
	assert.Equal(t, "Hello Ana, you have 3 items", Sprintf("Hello %s, you have %d items", "Ana", 3))
}

// TestSprintf_NoTokens tests that untokenized strings pass through verbatim
func TestSprintf_NoTokens(t *testing.T) {
	assert.Equal(t, "100% done", Sprintf("100% done"))
}

// TestSetupLogger_InvalidLevel tests fallback to info on a bad level
func TestSetupLogger_InvalidLevel(t *testing.T) {
	SetupLogger(LogSettings{Level: "bogus", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

// TestSetupLogger_DebugLevel tests that a valid level is applied
func TestSetupLogger_DebugLevel(t *testing.T) {
	SetupLogger(LogSettings{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}
