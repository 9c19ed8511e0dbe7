package plugin

import (
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tain335/svpack/internal/replace"
)

var scriptLoaders = map[string]api.Loader{
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
	".cjs": api.LoaderJS,
	".jsx": api.LoaderJSX,
	".ts":  api.LoaderTS,
	".mts": api.LoaderTS,
	".cts": api.LoaderTS,
	".tsx": api.LoaderTSX,
}

// ReplacePlugin substitutes build constants into script modules. Files
// without any placeholder fall through to esbuild's own loader.
func ReplacePlugin(replacer *replace.Replacer) api.Plugin {
	return api.Plugin{
		Name: "ReplacePlugin",
		Setup: func(pb api.PluginBuild) {
			pb.OnLoad(api.OnLoadOptions{
				Filter: `\.(m|c)?(j|t)sx?$`,
			}, func(ola api.OnLoadArgs) (api.OnLoadResult, error) {
				loader, ok := scriptLoaders[filepath.Ext(ola.Path)]
				if !ok {
					return api.OnLoadResult{}, nil
				}
				data, err := os.ReadFile(ola.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				source := string(data)
				if !replacer.Contains(source) {
					return api.OnLoadResult{}, nil
				}
				contents := replacer.Apply(source)
				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     loader,
					ResolveDir: filepath.Dir(ola.Path),
				}, nil
			})
		},
	}
}
