package plugin

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tain335/svpack/internal/config"
)

func TestResolveAlias(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/lib/greet.js":        "",
		"src/App.svelte":          "",
		"src/components/index.js": "",
		"src/data.json":           "",
	})
	entries := []config.AliasEntry{{Find: "@", Replacement: filepath.Join(root, "src")}}
	exts := []string{".js", ".svelte"}

	cases := []struct {
		importPath string
		want       string
		matched    bool
		exists     bool
	}{
		{"@/lib/greet", filepath.Join(root, "src", "lib", "greet.js"), true, true},
		{"@/App", filepath.Join(root, "src", "App.svelte"), true, true},
		{"@/components", filepath.Join(root, "src", "components", "index.js"), true, true},
		{"@/data.json", filepath.Join(root, "src", "data.json"), true, true},
		{"@/missing", filepath.Join(root, "src") + "/missing", true, false},
		{"@scope/pkg", "@scope/pkg", false, false},
		{"./local", "./local", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.importPath, func(t *testing.T) {
			got, matched, exists := ResolveAlias(entries, exts, tc.importPath)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.matched, matched)
			assert.Equal(t, tc.exists, exists)
		})
	}
}
