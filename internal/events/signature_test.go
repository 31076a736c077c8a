package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSign_Deterministic(t *testing.T) {
	body := []byte(`{"event":"task.updated","data":{"id":"1"}}`)

	first := Sign(body, "secret-a")
	second := Sign(body, "secret-a")

	require.Equal(t, first, second)
	require.True(t, strings.HasPrefix(first, "sha256="))
}

func TestSign_PayloadByteSensitive(t *testing.T) {
	body := []byte(`{"event":"task.updated"}`)
	altered := []byte(`{"event":"task.created"}`)

	require.NotEqual(t, Sign(body, "secret-a"), Sign(altered, "secret-a"))
}

func TestSign_SecretSensitive(t *testing.T) {
	body := []byte(`{"event":"task.updated"}`)

	require.NotEqual(t, Sign(body, "secret-a"), Sign(body, "secret-b"))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"task.created"}`)
	sig := Sign(body, "secret-a")

	require.True(t, VerifySignature(body, "secret-a", sig))
	require.False(t, VerifySignature(body, "secret-b", sig))
	require.False(t, VerifySignature([]byte(`{"event":"task.updated"}`), "secret-a", sig))
	require.False(t, VerifySignature(body, "secret-a", "sha256=deadbeef"))
}

func TestValidKind(t *testing.T) {
	require.True(t, ValidKind("task.created"))
	require.True(t, ValidKind("task.updated"))
	require.True(t, ValidKind("task.deleted"))
	require.False(t, ValidKind("Task.Created"))
	require.False(t, ValidKind("task.archived"))
	require.False(t, ValidKind(""))
}
