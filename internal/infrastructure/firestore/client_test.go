package firestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"LetHimCook-App/internal/config"
)

func TestClientOptions(t *testing.T) {
	t.Setenv("K_SERVICE", "")
	logger := zap.NewNop()

	assert.Empty(t, clientOptions(config.FirestoreConfig{}, logger))
	assert.Empty(t, clientOptions(config.FirestoreConfig{CredentialsFile: "/does/not/exist.json"}, logger))

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	assert.Len(t, clientOptions(config.FirestoreConfig{CredentialsFile: path}, logger), 1)

	t.Setenv("K_SERVICE", "lethimcook")
	assert.True(t, IsCloudRun())
	assert.Empty(t, clientOptions(config.FirestoreConfig{CredentialsFile: path}, logger))
}

func TestNewFirestoreClient_RequiresProject(t *testing.T) {
	_, err := NewFirestoreClient(context.Background(), config.FirestoreConfig{}, nil)
	assert.Error(t, err)
}
