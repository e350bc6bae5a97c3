package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/chamber/internal/logging"
)

func newBufferedLogger(debug, noColor bool) (*logging.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.NewWithWriter(&buf, debug, noColor), &buf
}

// TestSecretRedactionAtInfoLevel verifies secrets are redacted in Info-level logs
func TestSecretRedactionAtInfoLevel(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(false, true)

	secretValue := "super-secret-password-12345"
	logger.Info("Retrieved secret: %s", logging.Secret(secretValue))

	output := buf.String()
	assert.Contains(t, output, "[REDACTED]", "Log should contain redaction marker")
	assert.NotContains(t, output, secretValue, "Log must not contain actual secret value")
	assert.Contains(t, output, "Retrieved secret", "Log should contain message text")
}

// TestSecretRedactionAtDebugLevel verifies secrets are redacted in Debug-level logs
func TestSecretRedactionAtDebugLevel(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(true, true)

	secretValue := "debug-secret-api-key-67890"
	logger.Debug("Processing secret: %s", logging.Secret(secretValue))

	output := buf.String()
	assert.Contains(t, output, "[REDACTED]")
	assert.NotContains(t, output, secretValue)
	assert.Contains(t, output, "[DEBUG]", "Should indicate debug level")
}

// TestMultipleSecretsRedaction verifies multiple secrets in same log are all redacted
func TestMultipleSecretsRedaction(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(false, true)

	logger.Warn("Credentials: password=%s, api_key=%s, token=%s",
		logging.Secret("password-123"),
		logging.Secret("api-key-456"),
		logging.Secret("token-789"))

	output := buf.String()
	assert.Equal(t, 3, strings.Count(output, "[REDACTED]"))
	assert.NotContains(t, output, "password-123")
	assert.Contains(t, output, "⚠")
}

func TestSecretRedactionInErrorMessages(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(false, true)

	logger.Error("Authentication failed for secret: %s", logging.Secret("error-context-secret-999"))

	output := buf.String()
	assert.Contains(t, output, "✗ Authentication failed for secret: [REDACTED]")
	assert.NotContains(t, output, "error-context-secret-999")
}

// TestColorOutputDisabled verifies logs work correctly without color
func TestColorOutputDisabled(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(false, true)
	logger.Info("Test message")

	assert.NotContains(t, buf.String(), "\033[", "Should not contain ANSI codes when color disabled")
	assert.Equal(t, "✓ Test message\n", buf.String())
}

func TestColorOutputEnabled(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(false, false)
	logger.Info("Test message")

	assert.Contains(t, buf.String(), "\033[32m✓\033[0m")
}

// TestDebugModeDisabled verifies debug logs don't appear when debug is off
func TestDebugModeDisabled(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(false, true)
	logger.Debug("This should not appear")

	assert.Empty(t, buf.String(), "Debug message should not appear when debug is disabled")
	assert.False(t, logger.IsDebug())
}

// TestDebugModeEnabled verifies debug logs appear when debug is on
func TestDebugModeEnabled(t *testing.T) {
	t.Parallel()

	logger, buf := newBufferedLogger(true, true)
	logger.Debug("This should appear")

	assert.Contains(t, buf.String(), "[DEBUG] This should appear")
	assert.True(t, logger.IsDebug())
}
