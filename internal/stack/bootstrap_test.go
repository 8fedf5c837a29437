package stack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBootstrapScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "configure.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/bash\necho hi\n"), 0o755))

	script, err := LoadBootstrapScript(path)
	require.NoError(t, err)
	assert.Equal(t, path, script.Path)
	assert.Equal(t, "#!/bin/bash\necho hi\n", script.Content)
}

func TestLoadBootstrapScript_Missing(t *testing.T) {
	_, err := LoadBootstrapScript(filepath.Join(t.TempDir(), "nope.sh"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load bootstrap script")
}

func TestLoadBootstrapScript_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.sh")
	require.NoError(t, os.WriteFile(path, nil, 0o755))

	_, err := LoadBootstrapScript(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
