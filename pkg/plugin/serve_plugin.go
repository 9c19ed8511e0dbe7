package plugin

import (
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tain335/svpack/internal/livereload"
	"github.com/tain335/svpack/internal/logger"
)

// Starter is anything that launches once after a successful build.
type Starter interface {
	Start() error
}

// ServePlugin starts the dev server after the first build without errors.
// Later builds leave the running process alone.
func ServePlugin(proc Starter) api.Plugin {
	return api.Plugin{
		Name: "ServePlugin",
		Setup: func(pb api.PluginBuild) {
			log := logger.Get("serve")
			pb.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}
				if err := proc.Start(); err != nil {
					log.Error().Err(err).Msg("cannot start dev server")
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}

// Broadcaster pushes a message to connected browsers.
type Broadcaster interface {
	Broadcast(message livereload.Message)
}

func formatErrors(messages []api.Message) string {
	text := ""
	for _, m := range messages {
		text += m.Text + "\n"
		if m.Location != nil {
			text += fmt.Sprintf("%s:%d:%d\n", m.Location.File, m.Location.Line, m.Location.Column)
			if m.Location.LineText != "" {
				text += m.Location.LineText + "\n"
			}
		}
	}
	return text
}

// LiveReloadPlugin forwards build errors to the browser console. Successful
// writes reach the browser through the output directory watcher.
func LiveReloadPlugin(server Broadcaster) api.Plugin {
	return api.Plugin{
		Name: "LiveReloadPlugin",
		Setup: func(pb api.PluginBuild) {
			pb.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					server.Broadcast(livereload.Message{
						Type: "errors",
						Data: formatErrors(result.Errors),
					})
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}
