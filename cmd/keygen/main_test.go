package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func parseOutput(t *testing.T, out string) map[string]string {
	t.Helper()
	values := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[key] = strings.Trim(value, "'")
	}
	return values
}

func TestGenerateWithPassword(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, generate(&buf, "hunter22-but-longer"))

	out := buf.String()
	assert.Contains(t, out, "Generated admin credentials")
	assert.NotContains(t, out, "Admin password")

	values := parseOutput(t, out)
	assert.GreaterOrEqual(t, len(values["SECRET_KEY"]), 32)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(values["ADMIN_PASSWORD_HASH"]), []byte("hunter22-but-longer")))
}

func TestGenerateRandomPassword(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, generate(&buf, ""))

	lines := strings.Split(buf.String(), "\n")
	var password string
	for i, line := range lines {
		if strings.HasPrefix(line, "Admin password") && i+1 < len(lines) {
			password = lines[i+1]
		}
	}
	require.NotEmpty(t, password)

	values := parseOutput(t, buf.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(values["ADMIN_PASSWORD_HASH"]), []byte(password)))
}

func TestSecretsDiffer(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, generate(&a, "x"))
	require.NoError(t, generate(&b, "x"))
	assert.NotEqual(t, parseOutput(t, a.String())["SECRET_KEY"], parseOutput(t, b.String())["SECRET_KEY"])
}
