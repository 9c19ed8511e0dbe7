package plugin

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tain335/svpack/internal/config"
)

type dedupeMarker struct{}

// DedupePlugin resolves the listed packages from root whoever imports them,
// so nested node_modules copies are not bundled twice.
func DedupePlugin(root string, packages []string) api.Plugin {
	return api.Plugin{
		Name: "DedupePlugin",
		Setup: func(pb api.PluginBuild) {
			for _, pkg := range packages {
				pb.OnResolve(api.OnResolveOptions{
					Filter: "^" + regexp.QuoteMeta(pkg) + "(/.*)?$",
				}, func(ora api.OnResolveArgs) (api.OnResolveResult, error) {
					if _, ok := ora.PluginData.(dedupeMarker); ok {
						return api.OnResolveResult{}, nil
					}
					result := pb.Resolve(ora.Path, api.ResolveOptions{
						Importer:   ora.Importer,
						ResolveDir: root,
						Kind:       ora.Kind,
						PluginData: dedupeMarker{},
					})
					if len(result.Errors) > 0 {
						// let the regular resolver report it from the importer's view
						return api.OnResolveResult{}, nil
					}
					return api.OnResolveResult{
						Path:      result.Path,
						External:  result.External,
						Namespace: result.Namespace,
					}, nil
				})
			}
		},
	}
}

// ResolveAlias maps an import path through entries and probes extensions.
// It returns the rewritten path, whether an entry matched, and whether the
// rewritten path names an existing file.
func ResolveAlias(entries []config.AliasEntry, extensions []string, importPath string) (string, bool, bool) {
	for _, entry := range entries {
		if importPath != entry.Find && !strings.HasPrefix(importPath, entry.Find+"/") {
			continue
		}
		target := entry.Replacement + strings.TrimPrefix(importPath, entry.Find)
		candidates := []string{target}
		for _, ext := range extensions {
			candidates = append(candidates, target+ext)
		}
		for _, ext := range extensions {
			candidates = append(candidates, filepath.Join(target, "index"+ext))
		}
		for _, c := range candidates {
			if info, err := os.Stat(c); err == nil && !info.IsDir() {
				return c, true, true
			}
		}
		return target, true, false
	}
	return importPath, false, false
}

// AliasPlugin rewrites aliased imports. Replacements are resolved against root.
func AliasPlugin(root string, entries []config.AliasEntry, extensions []string) api.Plugin {
	resolved := make([]config.AliasEntry, 0, len(entries))
	for _, entry := range entries {
		replacement := entry.Replacement
		if !filepath.IsAbs(replacement) {
			replacement = filepath.Join(root, replacement)
		}
		resolved = append(resolved, config.AliasEntry{Find: entry.Find, Replacement: replacement})
	}
	return api.Plugin{
		Name: "AliasPlugin",
		Setup: func(pb api.PluginBuild) {
			for _, entry := range resolved {
				pb.OnResolve(api.OnResolveOptions{
					Filter: "^" + regexp.QuoteMeta(entry.Find) + "(/|$)",
				}, func(ora api.OnResolveArgs) (api.OnResolveResult, error) {
					target, matched, exists := ResolveAlias(resolved, extensions, ora.Path)
					if !matched {
						return api.OnResolveResult{}, nil
					}
					if exists {
						return api.OnResolveResult{Path: target}, nil
					}
					result := pb.Resolve(target, api.ResolveOptions{
						Importer:   ora.Importer,
						ResolveDir: ora.ResolveDir,
						Kind:       ora.Kind,
					})
					if len(result.Errors) > 0 {
						return api.OnResolveResult{Errors: result.Errors}, nil
					}
					return api.OnResolveResult{
						Path:      result.Path,
						External:  result.External,
						Namespace: result.Namespace,
					}, nil
				})
			}
		},
	}
}
