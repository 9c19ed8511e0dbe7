package component

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/tain335/svpack/internal/sass"
)

var styleBlock = regexp.MustCompile(`(?s)<style([^>]*)>(.*?)</style>`)
var langAttr = regexp.MustCompile(`\s+(?:lang|type)\s*=\s*["'](?:text/)?([\w-]+)["']`)

// StyleLang returns the stylesheet language declared by a <style> tag's
// attributes, or "css".
func StyleLang(attrs string) string {
	m := langAttr.FindStringSubmatch(attrs)
	if m == nil {
		return "css"
	}
	return strings.ToLower(m[1])
}

// Preprocessor rewrites <style lang="scss|sass"> blocks into plain CSS before
// the component compiler sees them.
type Preprocessor struct {
	Sass       sass.Compiler
	SourceMap  bool
	Compressed bool
}

// Process returns the rewritten source and the stylesheets it imported.
func (p *Preprocessor) Process(filename, source string) (string, []string, error) {
	if p == nil || p.Sass == nil {
		return source, nil, nil
	}
	var imports []string
	var firstErr error
	out := styleBlock.ReplaceAllStringFunc(source, func(block string) string {
		if firstErr != nil {
			return block
		}
		m := styleBlock.FindStringSubmatch(block)
		attrs, body := m[1], m[2]
		lang := StyleLang(attrs)
		if lang != "scss" && lang != "sass" {
			return block
		}
		result, err := p.Sass.Compile(filename, body, sass.Options{
			Syntax:     sass.SyntaxFor(lang),
			SourceMap:  p.SourceMap,
			Compressed: p.Compressed,
		})
		if err != nil {
			firstErr = err
			return block
		}
		imports = append(imports, result.Imports...)
		css := result.CSS
		if p.SourceMap && result.SourceMap != "" {
			css += "\n/*# sourceMappingURL=data:application/json;base64," +
				base64.StdEncoding.EncodeToString([]byte(result.SourceMap)) + " */"
		}
		return "<style" + langAttr.ReplaceAllString(attrs, "") + ">" + css + "</style>"
	})
	if firstErr != nil {
		return source, nil, firstErr
	}
	return out, imports, nil
}
