package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	_, err := FetchToken("http://localhost:8080/api")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, StoreToken("http://localhost:8080/api", "s3cret"))
	got, err := FetchToken("http://LOCALHOST:8080/other")
	require.NoError(t, err)
	require.Equal(t, "s3cret", got)

	raw, err := os.ReadFile(filepath.Join(dir, "debtboard", fileName))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "s3cret")

	require.NoError(t, DeleteToken("http://localhost:8080/api"))
	_, err = FetchToken("http://localhost:8080/api")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreTokenRejectsBadInput(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.Error(t, StoreToken("not a url", "x"))
	require.Error(t, StoreToken("http://localhost", "  "))
}
