package plugin

import (
	"os"
	"path/filepath"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tain335/svpack/internal/logger"
	"github.com/tain335/svpack/internal/sass"
)

type SassLoaderPluginOptions struct {
	SourceMap  bool
	Compressed bool
}

// SassLoaderPlugin compiles stylesheets imported from scripts.
func SassLoaderPlugin(compiler sass.Compiler, opts SassLoaderPluginOptions) api.Plugin {
	return api.Plugin{
		Name: "SassLoaderPlugin",
		Setup: func(pb api.PluginBuild) {
			log := logger.Get("sass")
			pb.OnLoad(api.OnLoadOptions{
				Filter: `\.s[ac]ss$`,
			}, func(ola api.OnLoadArgs) (api.OnLoadResult, error) {
				start := time.Now()
				data, err := os.ReadFile(ola.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				result, err := compiler.Compile(ola.Path, string(data), sass.Options{
					Syntax:     sass.SyntaxFor(ola.Path),
					SourceMap:  opts.SourceMap,
					Compressed: opts.Compressed,
				})
				if err != nil {
					return api.OnLoadResult{
						Errors: []api.Message{{
							Text:     err.Error(),
							Location: &api.Location{File: ola.Path},
						}},
					}, nil
				}
				contents := inlineSourceMap(result.CSS, result.SourceMap, true)
				log.Debug().Str("file", ola.Path).Dur("took", time.Since(start)).Msg("stylesheet compiled")
				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     api.LoaderCSS,
					ResolveDir: filepath.Dir(ola.Path),
					WatchFiles: result.Imports,
				}, nil
			})
		},
	}
}
