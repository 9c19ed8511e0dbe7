// Package component drives the external UI component compiler.
package component

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/tain335/svpack/internal/replace"
)

type Output struct {
	JS       Code
	CSS      Code
	Warnings []Diagnostic
	// WatchFiles are extra files the output depends on.
	WatchFiles []string
}

type cacheEntry struct {
	hash   uint64
	output Output
}

type Options struct {
	Dev       bool
	SourceMap bool
	Timeout   time.Duration
}

// Compiler turns component sources into JS and CSS. Outputs are cached per
// path and reused while the source hash is unchanged.
type Compiler struct {
	transport    Transport
	preprocessor *Preprocessor
	replacer     *replace.Replacer
	options      Options

	mutex sync.Mutex
	cache map[string]cacheEntry
}

func NewCompiler(transport Transport, preprocessor *Preprocessor, replacer *replace.Replacer, options Options) *Compiler {
	return &Compiler{
		transport:    transport,
		preprocessor: preprocessor,
		replacer:     replacer,
		options:      options,
		cache:        make(map[string]cacheEntry),
	}
}

func (c *Compiler) fromCache(path string, hash uint64) (Output, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	entry, ok := c.cache[path]
	if !ok || entry.hash != hash {
		return Output{}, false
	}
	return entry.output, true
}

func (c *Compiler) intoCache(path string, hash uint64, output Output) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache[path] = cacheEntry{hash: hash, output: output}
}

// Invalidate drops the cached output of path.
func (c *Compiler) Invalidate(path string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.cache, path)
}

func (c *Compiler) Compile(ctx context.Context, path string, source string) (Output, error) {
	hash := xxhash.Sum64String(source)
	if output, ok := c.fromCache(path, hash); ok {
		return output, nil
	}

	source = c.replacer.Apply(source)
	source, imports, err := c.preprocessor.Process(path, source)
	if err != nil {
		return Output{}, err
	}

	if c.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.Timeout)
		defer cancel()
	}
	resp, err := c.transport.RoundTrip(ctx, Request{
		Filename:  path,
		Source:    source,
		Dev:       c.options.Dev,
		SourceMap: c.options.SourceMap,
	})
	if err != nil {
		return Output{}, err
	}
	output := Output{
		JS:         resp.JS,
		CSS:        resp.CSS,
		Warnings:   resp.Warnings,
		WatchFiles: imports,
	}
	// imported stylesheets may change without the component changing
	if len(imports) == 0 {
		c.intoCache(path, hash, output)
	}
	return output, nil
}

func (c *Compiler) Close() error {
	return c.transport.Close()
}
