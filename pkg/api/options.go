// Package api assembles the esbuild pipeline from a project config and runs
// it once or in watch mode.
package api

import (
	"strings"
	"time"

	esbuild "github.com/evanw/esbuild/pkg/api"
	"github.com/tain335/svpack/internal/component"
	"github.com/tain335/svpack/internal/config"
	packerrors "github.com/tain335/svpack/internal/errors"
	"github.com/tain335/svpack/internal/livereload"
	"github.com/tain335/svpack/internal/logger"
	"github.com/tain335/svpack/internal/pkginfo"
	"github.com/tain335/svpack/internal/process"
	"github.com/tain335/svpack/internal/replace"
	"github.com/tain335/svpack/internal/sass"
	"github.com/tain335/svpack/pkg/plugin"
	"golang.org/x/exp/slices"
)

// Serve commands routed through package.json need its start script.
const startScriptPrefix = "npm run start"

// esbuild's own resolve order, kept ahead of the configured extensions.
var defaultExtensions = []string{".tsx", ".ts", ".jsx", ".js", ".css", ".json"}

// Deps are the long-lived services a pipeline drives. Nil fields are built
// from the config by NewPipeline.
type Deps struct {
	Sass       sass.Compiler
	Transport  component.Transport
	LiveReload *livereload.Server
	DevServer  *process.Process
}

// Pipeline owns everything one build context needs.
type Pipeline struct {
	Config     *config.Config
	Package    *pkginfo.Package
	Replacer   *replace.Replacer
	Components *component.Compiler

	sass       sass.Compiler
	liveReload *livereload.Server
	devServer  *process.Process
}

// NewPipeline reads package.json and prepares the compilers. Nothing is
// started yet: the sass engine and the component compiler start on first
// use, the servers when Watch runs.
func NewPipeline(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pkg, err := pkginfo.Read(cfg.Abs("."))
	if err != nil {
		return nil, err
	}

	open, close := "", ""
	if len(cfg.Replace.Delimiters) == 2 {
		open, close = cfg.Replace.Delimiters[0], cfg.Replace.Delimiters[1]
	}
	replacer := replace.New(open, close, pkg.ReplaceValues(), cfg.Replace.Values)
	log := logger.Get("pipeline")
	log.Debug().Strs("placeholders", replacer.Keys()).Msg("replacing")

	p := &Pipeline{
		Config:     cfg,
		Package:    pkg,
		Replacer:   replacer,
		sass:       deps.Sass,
		liveReload: deps.LiveReload,
		devServer:  deps.DevServer,
	}
	if p.sass == nil {
		root := cfg.Abs(".")
		p.sass = sass.Lazy(func() (sass.Compiler, error) {
			return sass.New(cfg.Sass, root)
		})
	}

	transport := deps.Transport
	if transport == nil {
		transport = component.NewProcessTransport(cfg.Compiler.Command, cfg.Abs("."))
	}
	p.Components = component.NewCompiler(transport, &component.Preprocessor{
		Sass:       p.sass,
		SourceMap:  !cfg.Production(),
		Compressed: cfg.Production(),
	}, replacer, component.Options{
		Dev:       !cfg.Production(),
		SourceMap: !cfg.Production(),
		Timeout:   time.Duration(cfg.Compiler.Timeout) * time.Second,
	})

	if !cfg.Production() {
		if p.liveReload == nil && cfg.LiveReload.Enabled {
			p.liveReload = livereload.NewServer(livereload.Options{
				Host: cfg.LiveReload.Host,
				Port: cfg.LiveReload.Port,
				Dir:  cfg.LiveReloadDir(),
			})
		}
		if p.devServer == nil && cfg.Serve.Enabled && cfg.Serve.Command != "" {
			if strings.HasPrefix(cfg.Serve.Command, startScriptPrefix) && !pkg.HasScript("start") {
				log.Warn().Str("command", cfg.Serve.Command).Msg("package.json has no start script, not serving")
			} else {
				p.devServer = process.New(cfg.Serve.Command, cfg.Abs("."))
			}
		}
	}
	return p, nil
}

func (p *Pipeline) LiveReload() *livereload.Server {
	return p.liveReload
}

func (p *Pipeline) DevServer() *process.Process {
	return p.devServer
}

func format(name string) esbuild.Format {
	switch strings.ToLower(name) {
	case "esm":
		return esbuild.FormatESModule
	case "cjs":
		return esbuild.FormatCommonJS
	default:
		return esbuild.FormatIIFE
	}
}

func resolveExtensions(configured []string) []string {
	exts := slices.Clone(defaultExtensions)
	for _, ext := range configured {
		if !slices.Contains(exts, ext) {
			exts = append(exts, ext)
		}
	}
	return exts
}

// Plugins returns the pipeline steps in registration order.
func (p *Pipeline) Plugins() []esbuild.Plugin {
	cfg := p.Config
	root := cfg.Abs(".")
	dev := !cfg.Production()

	copyOpts := plugin.CopyPluginOptions{Root: root, Targets: cfg.Copy}
	if dev && p.liveReload != nil {
		copyOpts.ScriptSrc = livereload.ClientURL(cfg.LiveReload.Host, cfg.LiveReload.Port)
		copyOpts.ScriptID = livereload.ScriptID
	}

	plugins := []esbuild.Plugin{
		plugin.CopyPlugin(copyOpts),
		plugin.ComponentPlugin(p.Components, plugin.ComponentPluginOptions{EmitCSS: true}),
		plugin.DedupePlugin(root, cfg.Dedupe),
		plugin.ReplacePlugin(p.Replacer),
		plugin.AliasPlugin(root, cfg.Alias, resolveExtensions(cfg.ResolveExtensions)),
	}
	if dev && p.devServer != nil {
		plugins = append(plugins, plugin.ServePlugin(p.devServer))
	}
	if dev && p.liveReload != nil {
		plugins = append(plugins, plugin.LiveReloadPlugin(p.liveReload))
	}
	plugins = append(plugins,
		plugin.CleanPlugin(cfg.Abs(cfg.Outdir)),
		plugin.SassLoaderPlugin(p.sass, plugin.SassLoaderPluginOptions{
			SourceMap:  dev,
			Compressed: !dev,
		}),
	)
	if cfg.Report {
		plugins = append(plugins, plugin.ReportPlugin())
	}
	return plugins
}

// Options builds the esbuild options for the pipeline.
func (p *Pipeline) Options() esbuild.BuildOptions {
	cfg := p.Config
	production := cfg.Production()

	opts := esbuild.BuildOptions{
		AbsWorkingDir:     cfg.Abs("."),
		EntryPoints:       []string{cfg.Abs(cfg.Input)},
		Outfile:           cfg.OutfilePath(),
		Bundle:            true,
		Write:             true,
		Format:            format(cfg.Format),
		Platform:          esbuild.PlatformBrowser,
		MainFields:        []string{"svelte", "browser", "module", "main"},
		Conditions:        []string{"svelte"},
		ResolveExtensions: resolveExtensions(cfg.ResolveExtensions),
		MinifyWhitespace:  production,
		MinifyIdentifiers: production,
		MinifySyntax:      production,
		Metafile:          cfg.Report,
		LogLevel:          esbuild.LogLevelWarning,
		Plugins:           p.Plugins(),
	}
	if opts.Format == esbuild.FormatIIFE {
		opts.GlobalName = cfg.GlobalName
	}
	if production {
		opts.Sourcemap = esbuild.SourceMapNone
	} else {
		opts.Sourcemap = esbuild.SourceMapLinked
		opts.LogLevel = esbuild.LogLevelInfo
		if p.liveReload != nil {
			opts.Banner = map[string]string{
				"js": livereload.LoaderSnippet(cfg.LiveReload.Port),
			}
		}
	}
	return opts
}

// Close shuts the compilers and any dev services that were started.
func (p *Pipeline) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if p.devServer != nil {
		keep(p.devServer.Stop())
	}
	if p.liveReload != nil {
		keep(p.liveReload.Close())
	}
	keep(p.Components.Close())
	keep(p.sass.Close())
	if first != nil {
		return packerrors.Wrap(first, packerrors.ErrProcess, "closing pipeline")
	}
	return nil
}
