package plugin

import (
	"os"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tain335/svpack/internal/logger"
)

// CleanPlugin removes dir before the first build of a context. Rebuilds in
// watch mode keep it so the live-reload watcher stays attached.
func CleanPlugin(dir string) api.Plugin {
	return api.Plugin{
		Name: "CleanPlugin",
		Setup: func(pb api.PluginBuild) {
			var once sync.Once
			log := logger.Get("clean")
			pb.OnStart(func() (api.OnStartResult, error) {
				var err error
				once.Do(func() {
					log.Debug().Str("dir", dir).Msg("removing build directory")
					err = os.RemoveAll(dir)
				})
				if err != nil {
					return api.OnStartResult{
						Errors: []api.Message{{Text: "cannot clean " + dir + ": " + err.Error()}},
					}, nil
				}
				return api.OnStartResult{}, nil
			})
		},
	}
}
