package pkginfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	packerrors "github.com/tain335/svpack/internal/errors"
)

func writePackage(t *testing.T, content string) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))
	return dir
}

func TestRead(t *testing.T) {
	dir := writePackage(t, `{
  "name": "notes",
  "version": "1.4.2",
  "homepage": "https://example.org/notes",
  "scripts": {"start": "sirv build"}
}`)

	pkg, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, "notes", pkg.Name)
	assert.Equal(t, "1.4.2", pkg.Version)
	assert.Equal(t, "https://example.org/notes", pkg.Homepage)
	assert.True(t, pkg.HasScript("start"))
	assert.False(t, pkg.HasScript("dev"))
	assert.Equal(t, map[string]string{
		"pkgVersion":  "1.4.2",
		"pkgHomepage": "https://example.org/notes",
	}, pkg.ReplaceValues())
}

func TestReadMissingFields(t *testing.T) {
	pkg, err := Read(writePackage(t, `{"name": "bare"}`))
	require.NoError(t, err)
	assert.Empty(t, pkg.Version)
	assert.Empty(t, pkg.Homepage)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(t.TempDir())
	assert.True(t, packerrors.IsErrorCode(err, packerrors.ErrConfigLoad))

	_, err = Read(writePackage(t, `{"version": `))
	assert.True(t, packerrors.IsErrorCode(err, packerrors.ErrConfigLoad))
}
