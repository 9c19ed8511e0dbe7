package sass

import (
	"encoding/json"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	godartsass "github.com/bep/godartsass/v2"
	packerrors "github.com/tain335/svpack/internal/errors"
	"github.com/tain335/svpack/internal/logger"
)

type sourceMap struct {
	Sources []string `json:"sources"`
}

// DartCompiler talks to one long-lived `sass --embedded` process.
type DartCompiler struct {
	transpiler   *godartsass.Transpiler
	includePaths []string
	resolver     *ImportResolver
	mutex        sync.Mutex
}

// NewDartCompiler starts the embedded Dart Sass host. An empty binary means
// `sass` from PATH.
func NewDartCompiler(binary string, includePaths []string) (*DartCompiler, error) {
	log := logger.Get("sass")
	t, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: binary,
		Timeout:                  60 * time.Second,
		LogEventHandler: func(e godartsass.LogEvent) {
			log.Warn().Int("type", int(e.Type)).Msg(e.Message)
		},
	})
	if err != nil {
		return nil, packerrors.Wrap(err, packerrors.ErrCompile, "starting dart sass")
	}
	return &DartCompiler{
		transpiler:   t,
		includePaths: includePaths,
		resolver:     &ImportResolver{SearchPaths: includePaths},
	}, nil
}

func dartSyntax(syntax Syntax) godartsass.SourceSyntax {
	switch syntax {
	case SyntaxIndented:
		return godartsass.SourceSyntaxSASS
	case SyntaxCSS:
		return godartsass.SourceSyntaxCSS
	default:
		return godartsass.SourceSyntaxSCSS
	}
}

func (d *DartCompiler) Compile(path string, source string, opts Options) (Result, error) {
	syntax := dartSyntax(opts.Syntax)
	style := godartsass.OutputStyleExpanded
	if opts.Compressed {
		style = godartsass.OutputStyleCompressed
	}
	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()

	d.mutex.Lock()
	defer d.mutex.Unlock()
	result, err := d.transpiler.Execute(godartsass.Args{
		URL:             fileURL,
		Source:          source,
		SourceSyntax:    syntax,
		OutputStyle:     style,
		EnableSourceMap: true,
		IncludePaths:    d.includePaths,
		ImportResolver:  &dartResolver{resolver: d.resolver, entry: path},
	})
	if err != nil {
		return Result{}, packerrors.Wrapf(err, packerrors.ErrCompile, "compiling %s", path)
	}

	var sm sourceMap
	_ = json.Unmarshal([]byte(result.SourceMap), &sm)
	imports := make([]string, 0, len(sm.Sources))
	for _, s := range sm.Sources {
		if !strings.HasPrefix(s, "file://") {
			continue
		}
		if u, err := url.Parse(s); err == nil && filepath.FromSlash(u.Path) != path {
			imports = append(imports, filepath.FromSlash(u.Path))
		}
	}
	out := Result{CSS: result.CSS, Imports: imports}
	if opts.SourceMap {
		out.SourceMap = result.SourceMap
	}
	return out, nil
}

func (d *DartCompiler) Close() error {
	return d.transpiler.Close()
}
