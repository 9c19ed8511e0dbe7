package plugin

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tain335/svpack/internal/component"
)

const cssNamespace = "svpack-css"

type ComponentPluginOptions struct {
	// EmitCSS extracts component styles into the bundle stylesheet.
	EmitCSS bool
}

func diagnosticMessage(d component.Diagnostic) api.Message {
	msg := api.Message{Text: d.Message}
	if d.Code != "" {
		msg.ID = d.Code
	}
	if d.Filename != "" {
		loc := &api.Location{File: d.Filename}
		if d.Start != nil {
			loc.Line = d.Start.Line
			loc.Column = d.Start.Column
		}
		msg.Location = loc
	}
	return msg
}

func inlineSourceMap(contents, sourceMap string, css bool) string {
	if sourceMap == "" {
		return contents
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(sourceMap))
	if css {
		return contents + "\n/*# sourceMappingURL=data:application/json;base64," + encoded + " */"
	}
	return contents + "\n//# sourceMappingURL=data:application/json;base64," + encoded
}

// ComponentPlugin compiles .svelte files through compiler. Extracted styles
// are served from a virtual "<file>.css" module so that esbuild writes them
// next to the bundle.
func ComponentPlugin(compiler *component.Compiler, opts ComponentPluginOptions) api.Plugin {
	return api.Plugin{
		Name: "ComponentPlugin",
		Setup: func(pb api.PluginBuild) {
			var styles sync.Map
			// in-flight compiles stop once the build context is disposed
			ctx, cancel := context.WithCancel(context.Background())
			pb.OnDispose(cancel)

			pb.OnLoad(api.OnLoadOptions{
				Filter: `\.svelte$`,
			}, func(ola api.OnLoadArgs) (api.OnLoadResult, error) {
				data, err := os.ReadFile(ola.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				output, err := compiler.Compile(ctx, ola.Path, string(data))
				if err != nil {
					var compileErr *component.CompileError
					if errors.As(err, &compileErr) {
						return api.OnLoadResult{
							Errors: []api.Message{diagnosticMessage(compileErr.Diagnostic)},
						}, nil
					}
					return api.OnLoadResult{}, err
				}

				contents := inlineSourceMap(output.JS.Code, output.JS.Map, false)
				if opts.EmitCSS && output.CSS.Code != "" {
					cssPath := ola.Path + ".css"
					styles.Store(cssPath, inlineSourceMap(output.CSS.Code, output.CSS.Map, true))
					contents = contents + "\nimport " + strconv.Quote(cssPath) + ";"
				}
				warnings := make([]api.Message, 0, len(output.Warnings))
				for _, w := range output.Warnings {
					warnings = append(warnings, diagnosticMessage(w))
				}
				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     api.LoaderJS,
					ResolveDir: filepath.Dir(ola.Path),
					Warnings:   warnings,
					WatchFiles: output.WatchFiles,
				}, nil
			})

			pb.OnResolve(api.OnResolveOptions{
				Filter: `\.svelte\.css$`,
			}, func(ora api.OnResolveArgs) (api.OnResolveResult, error) {
				if _, ok := styles.Load(ora.Path); !ok {
					return api.OnResolveResult{}, nil
				}
				return api.OnResolveResult{
					Path:      ora.Path,
					Namespace: cssNamespace,
				}, nil
			})

			pb.OnLoad(api.OnLoadOptions{
				Filter:    `.*`,
				Namespace: cssNamespace,
			}, func(ola api.OnLoadArgs) (api.OnLoadResult, error) {
				value, ok := styles.Load(ola.Path)
				if !ok {
					return api.OnLoadResult{}, nil
				}
				css := value.(string)
				return api.OnLoadResult{
					Contents:   &css,
					Loader:     api.LoaderCSS,
					ResolveDir: filepath.Dir(ola.Path),
				}, nil
			})
		},
	}
}
