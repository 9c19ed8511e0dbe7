package api

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	esbuild "github.com/evanw/esbuild/pkg/api"
	"github.com/tain335/svpack/internal/component"
	"github.com/tain335/svpack/internal/config"
	packerrors "github.com/tain335/svpack/internal/errors"
	"github.com/tain335/svpack/internal/livereload"
	"github.com/tain335/svpack/internal/logger"
)

// SourceDebounce is the quiet time before a batch of source edits rebuilds.
var SourceDebounce = 50 * time.Millisecond

var skippedDirs = []string{"node_modules", ".git", component.StateDir}

type skipper struct {
	root   string
	outdir string
}

// skip reports whether path is, or lies below, a directory the source
// watcher ignores.
func (s skipper) skip(path string) bool {
	if path == s.outdir || strings.HasPrefix(path, s.outdir+string(filepath.Separator)) {
		return true
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		for _, dir := range skippedDirs {
			if part == dir {
				return true
			}
		}
	}
	return false
}

// Watch builds, then rebuilds on every source change until ctx is done. In
// development it also runs the live-reload server and the dev server. A
// failing build does not stop watching.
func Watch(ctx context.Context, cfg *config.Config) error {
	return WatchWith(ctx, cfg, Deps{})
}

// WatchWith is Watch with caller-provided services.
func WatchWith(ctx context.Context, cfg *config.Config, deps Deps) error {
	log := logger.Get("watch")
	pipeline, err := NewPipeline(cfg, deps)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			log.Warn().Err(err).Msg("cleanup failed")
		}
	}()

	buildCtx, ctxErr := esbuild.Context(pipeline.Options())
	if ctxErr != nil {
		return packerrors.Newf(packerrors.ErrBuildFailed, "invalid build options: %d error(s)", len(ctxErr.Errors))
	}
	defer buildCtx.Dispose()

	var (
		buildMutex sync.Mutex
		stopped    bool
	)
	rebuild := func(reason string) {
		buildMutex.Lock()
		defer buildMutex.Unlock()
		if stopped {
			return
		}
		done := logger.Duration(log, reason)
		result := buildCtx.Rebuild()
		done()
		if len(result.Errors) > 0 {
			log.Error().Int("errors", len(result.Errors)).Msg("build failed, waiting for changes")
		}
	}
	// a rebuild in flight finishes before the context is disposed
	stop := func() {
		buildMutex.Lock()
		stopped = true
		buildMutex.Unlock()
	}
	defer stop()

	root := cfg.Abs(".")
	s := skipper{root: root, outdir: cfg.Abs(cfg.Outdir)}
	sources, err := livereload.NewWatcher(SourceDebounce, func(paths []string) {
		changed := make([]string, 0, len(paths))
		for _, p := range paths {
			if s.skip(p) {
				continue
			}
			if filepath.Ext(p) == ".svelte" {
				pipeline.Components.Invalidate(p)
			}
			if rel, err := filepath.Rel(root, p); err == nil {
				p = rel
			}
			changed = append(changed, p)
		}
		if len(changed) == 0 {
			return
		}
		if cfg.ClearScreen {
			logger.Clear(os.Stderr)
		}
		log.Info().Strs("changed", changed).Msg("rebuilding")
		rebuild("rebuild")
	})
	if err != nil {
		return packerrors.Wrap(err, packerrors.ErrFileAccess, "creating source watcher")
	}
	sources.Skip = s.skip
	if err := sources.AddRecursive(root); err != nil {
		_ = sources.Close()
		return packerrors.Wrap(err, packerrors.ErrFileAccess, "watching sources")
	}
	defer sources.Close()
	// edits made during the first build trigger a rebuild
	sources.Start()
	log.Info().Str("root", root).Msg("watching for changes")

	rebuild("initial build")

	if server := pipeline.LiveReload(); server != nil {
		if err := server.Start(); err != nil {
			return packerrors.Wrap(err, packerrors.ErrProcess, "starting live reload")
		}
		log.Info().Str("addr", server.Addr()).Msg("live reload listening")
	}
	if dev := pipeline.DevServer(); dev != nil {
		go func() {
			select {
			case <-dev.Done():
				if dev.Started() && ctx.Err() == nil {
					log.Warn().Err(dev.Err()).Msg("dev server exited")
				}
			case <-ctx.Done():
			}
		}()
	}

	<-ctx.Done()
	_ = sources.Close()
	stop()
	log.Info().Msg("stopped watching")
	return nil
}
