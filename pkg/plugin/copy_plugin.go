package plugin

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/renameio/v2"
	"github.com/tain335/svpack/internal/config"
	packerrors "github.com/tain335/svpack/internal/errors"
	"github.com/tain335/svpack/internal/logger"
)

type CopyPluginOptions struct {
	Root    string
	Targets []config.CopyTarget
	// ScriptSrc, when set, is injected into every copied HTML document.
	ScriptSrc string
	ScriptID  string
}

func writeAtomically(path string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, perm)
}

func copyFile(src, dst string, opts CopyPluginOptions) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if opts.ScriptSrc != "" && strings.EqualFold(filepath.Ext(src), ".html") {
		injected, err := InjectScript(data, opts.ScriptSrc, opts.ScriptID)
		if err != nil {
			return err
		}
		data = injected
	}
	return writeAtomically(dst, data, info.Mode().Perm())
}

func copyTree(src, dst string, opts CopyPluginOptions) (int, error) {
	count := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		count++
		return copyFile(path, filepath.Join(dst, rel), opts)
	})
	return count, err
}

// CopyTargets copies every glob match of each target into its destination
// and returns the number of files written.
func CopyTargets(opts CopyPluginOptions) (int, error) {
	total := 0
	for _, target := range opts.Targets {
		pattern := target.Src
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(opts.Root, pattern)
		}
		dest := target.Dest
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(opts.Root, dest)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return total, packerrors.Wrapf(err, packerrors.ErrConfigValid, "bad copy pattern %q", target.Src)
		}
		for _, match := range matches {
			n, err := copyTree(match, filepath.Join(dest, filepath.Base(match)), opts)
			if err != nil {
				return total, packerrors.Wrapf(err, packerrors.ErrFileAccess, "copying %s", match)
			}
			total += n
		}
	}
	return total, nil
}

// CopyPlugin copies static assets into the output once a build succeeds.
func CopyPlugin(opts CopyPluginOptions) api.Plugin {
	return api.Plugin{
		Name: "CopyPlugin",
		Setup: func(pb api.PluginBuild) {
			log := logger.Get("copy")
			pb.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				n, err := CopyTargets(opts)
				if err != nil {
					return api.OnEndResult{
						Errors: []api.Message{{Text: err.Error()}},
					}, nil
				}
				log.Debug().Int("files", n).Msg("static assets copied")
				return api.OnEndResult{}, nil
			})
		},
	}
}
