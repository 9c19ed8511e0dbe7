package plugin

import (
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetafile = `{
  "inputs": {
    "src/main.js": {"bytes": 100},
    "src/App.svelte": {"bytes": 900},
    "node_modules/svelte/internal/index.mjs": {"bytes": 5000}
  },
  "outputs": {
    "build/bundle.js": {
      "bytes": 4200,
      "entryPoint": "src/main.js",
      "inputs": {
        "src/main.js": {"bytesInOutput": 80},
        "src/App.svelte": {"bytesInOutput": 700},
        "node_modules/svelte/internal/index.mjs": {"bytesInOutput": 3400}
      }
    },
    "build/bundle.css": {
      "bytes": 120,
      "inputs": {
        "src/App.svelte.css": {"bytesInOutput": 120}
      }
    }
  }
}`

func TestAnalyze(t *testing.T) {
	reports, err := Analyze(sampleMetafile, 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "build/bundle.css", reports[0].Path)
	assert.Equal(t, 1, reports[0].InputCount)

	js := reports[1]
	assert.Equal(t, "build/bundle.js", js.Path)
	assert.Equal(t, 4200, js.Bytes)
	assert.Equal(t, 3, js.InputCount)
	assert.Equal(t, []InputShare{
		{Path: "node_modules/svelte/internal/index.mjs", Bytes: 3400},
		{Path: "src/App.svelte", Bytes: 700},
	}, js.TopInputs)
}

func TestAnalyzeInvalid(t *testing.T) {
	_, err := Analyze("{", 3)
	assert.Error(t, err)
}

func TestFormatErrors(t *testing.T) {
	text := formatErrors([]api.Message{
		{Text: "Could not resolve \"./missing\"", Location: &api.Location{
			File:     "src/main.js",
			Line:     1,
			Column:   18,
			LineText: "import x from './missing';",
		}},
		{Text: "plain"},
	})
	assert.Equal(t, "Could not resolve \"./missing\"\nsrc/main.js:1:18\nimport x from './missing';\nplain\n", text)
}
