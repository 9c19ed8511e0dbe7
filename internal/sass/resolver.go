package sass

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	godartsass "github.com/bep/godartsass/v2"
)

var matchPatternWithUnderscore = [...]string{"{{file}}.css", "{{file}}.scss", "{{file}}.sass", "{{file}}/index.scss", "{{file}}/index.sass", "{{file}}/_index.scss", "{{file}}/_index.sass"}
var matchPatternNormal = [...]string{"{{file}}.css", "{{file}}.scss", "{{file}}.sass", "_{{file}}.scss", "_{{file}}.sass", "{{file}}/index.scss", "{{file}}/index.sass", "{{file}}/_index.scss", "{{file}}/_index.sass"}

// NodeModuleDirs lists node_modules directories from dir up to the filesystem root.
func NodeModuleDirs(dir string) []string {
	var result []string
	for {
		candidate := filepath.Join(dir, "node_modules")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			result = append(result, candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return result
}

// ImportResolver finds "~pkg/file" and bare package imports in node_modules,
// trying the partial and index variants sass itself would try.
type ImportResolver struct {
	SearchPaths []string
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func (r *ImportResolver) tryResolveLocalFile(base string, filename string) string {
	if strings.HasSuffix(filename, ".css") || strings.HasSuffix(filename, ".scss") || strings.HasSuffix(filename, ".sass") {
		resolved := filepath.Join(base, filename)
		if fileExists(resolved) {
			return resolved
		}
		return ""
	}
	if strings.HasPrefix(filename, "_") {
		for _, pattern := range matchPatternWithUnderscore {
			maybePath := filepath.Join(base, strings.ReplaceAll(pattern, "{{file}}", filename))
			if fileExists(maybePath) {
				return maybePath
			}
		}
		return ""
	}
	for _, pattern := range matchPatternNormal {
		maybePath := filepath.Join(base, strings.ReplaceAll(pattern, "{{file}}", filename))
		if fileExists(maybePath) {
			return maybePath
		}
	}
	return ""
}

// Resolve maps an import url seen in prev to an absolute file, or "".
func (r *ImportResolver) Resolve(importURL string, prev string) string {
	if strings.HasPrefix(importURL, "http://") || strings.HasPrefix(importURL, "https://") || strings.HasPrefix(importURL, "//") {
		return ""
	}
	if strings.HasPrefix(importURL, "file://") {
		return strings.TrimPrefix(importURL, "file://")
	}
	moduleImport := strings.HasPrefix(importURL, "~")
	importURL = strings.TrimPrefix(importURL, "~")
	dir, filename := filepath.Split(filepath.FromSlash(importURL))

	if !moduleImport && prev != "" {
		if resolved := r.tryResolveLocalFile(filepath.Join(filepath.Dir(prev), dir), filename); resolved != "" {
			return resolved
		}
	}
	if filepath.IsAbs(importURL) {
		return r.tryResolveLocalFile(dir, filename)
	}
	searchPaths := r.SearchPaths
	if prev != "" {
		searchPaths = append(NodeModuleDirs(filepath.Dir(prev)), searchPaths...)
	}
	for _, p := range searchPaths {
		if resolved := r.tryResolveLocalFile(filepath.Join(p, dir), filename); resolved != "" {
			return resolved
		}
	}
	return ""
}

// dartResolver adapts ImportResolver to the embedded protocol. The protocol
// hands over only the url, so lookups start from the entry stylesheet.
type dartResolver struct {
	resolver *ImportResolver
	entry    string
}

var _ godartsass.ImportResolver = (*dartResolver)(nil)

func (d *dartResolver) CanonicalizeURL(importURL string) (string, error) {
	if !strings.HasPrefix(importURL, "~") {
		// relative and load-path imports are handled by sass itself
		return "", nil
	}
	resolved := d.resolver.Resolve(importURL, d.entry)
	if resolved == "" {
		return "", nil
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(resolved)}).String(), nil
}

func (d *dartResolver) Load(canonicalizedURL string) (godartsass.Import, error) {
	u, err := url.Parse(canonicalizedURL)
	if err != nil {
		return godartsass.Import{}, err
	}
	path := filepath.FromSlash(u.Path)
	content, err := os.ReadFile(path)
	if err != nil {
		return godartsass.Import{}, err
	}
	return godartsass.Import{Content: string(content), SourceSyntax: dartSyntax(SyntaxFor(path))}, nil
}
