package api

import (
	"context"

	esbuild "github.com/evanw/esbuild/pkg/api"
	"github.com/tain335/svpack/internal/config"
	packerrors "github.com/tain335/svpack/internal/errors"
	"github.com/tain335/svpack/internal/logger"
)

// Build runs the pipeline once. Cancelling ctx aborts the build in flight.
func Build(ctx context.Context, cfg *config.Config) (esbuild.BuildResult, error) {
	return BuildWith(ctx, cfg, Deps{})
}

// BuildWith is Build with caller-provided services.
func BuildWith(ctx context.Context, cfg *config.Config, deps Deps) (esbuild.BuildResult, error) {
	log := logger.Get("build")
	pipeline, err := NewPipeline(cfg, deps)
	if err != nil {
		return esbuild.BuildResult{}, err
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			log.Warn().Err(err).Msg("cleanup failed")
		}
	}()

	buildCtx, ctxErr := esbuild.Context(pipeline.Options())
	if ctxErr != nil {
		return esbuild.BuildResult{Errors: ctxErr.Errors}, packerrors.Newf(packerrors.ErrBuildFailed, "invalid build options: %d error(s)", len(ctxErr.Errors))
	}
	defer buildCtx.Dispose()

	stop := context.AfterFunc(ctx, buildCtx.Cancel)
	defer stop()

	done := logger.Duration(log, "build")
	result := buildCtx.Rebuild()
	done()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(result.Errors) > 0 {
		return result, packerrors.Newf(packerrors.ErrBuildFailed, "build failed with %d error(s)", len(result.Errors))
	}
	log.Info().
		Bool("production", cfg.Production()).
		Str("outfile", cfg.OutfilePath()).
		Int("warnings", len(result.Warnings)).
		Msg("build finished")
	return result, nil
}
