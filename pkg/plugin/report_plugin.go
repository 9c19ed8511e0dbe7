package plugin

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/tain335/svpack/internal/logger"
	"golang.org/x/exp/maps"
)

// Metafile is the subset of esbuild's metafile the report reads.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

type MetafileInput struct {
	Bytes int `json:"bytes"`
}

type MetafileOutput struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]InputContrib `json:"inputs"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

type InputShare struct {
	Path  string
	Bytes int
}

type OutputReport struct {
	Path       string
	Bytes      int
	TopInputs  []InputShare
	InputCount int
}

// Analyze lists outputs by path with their largest contributing inputs.
func Analyze(metafile string, top int) ([]OutputReport, error) {
	var meta Metafile
	if err := json.Unmarshal([]byte(metafile), &meta); err != nil {
		return nil, err
	}
	paths := maps.Keys(meta.Outputs)
	sort.Strings(paths)

	reports := make([]OutputReport, 0, len(paths))
	for _, p := range paths {
		out := meta.Outputs[p]
		shares := make([]InputShare, 0, len(out.Inputs))
		for input, contrib := range out.Inputs {
			shares = append(shares, InputShare{Path: input, Bytes: contrib.BytesInOutput})
		}
		sort.Slice(shares, func(i, j int) bool {
			if shares[i].Bytes != shares[j].Bytes {
				return shares[i].Bytes > shares[j].Bytes
			}
			return shares[i].Path < shares[j].Path
		})
		count := len(shares)
		if len(shares) > top {
			shares = shares[:top]
		}
		reports = append(reports, OutputReport{
			Path:       p,
			Bytes:      out.Bytes,
			TopInputs:  shares,
			InputCount: count,
		})
	}
	return reports, nil
}

// ReportPlugin logs output sizes after each successful build. It needs
// BuildOptions.Metafile.
func ReportPlugin() api.Plugin {
	return api.Plugin{
		Name: "ReportPlugin",
		Setup: func(pb api.PluginBuild) {
			log := logger.Get("report")
			pb.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 || result.Metafile == "" {
					return api.OnEndResult{}, nil
				}
				reports, err := Analyze(result.Metafile, 3)
				if err != nil {
					log.Warn().Err(err).Msg("cannot read metafile")
					return api.OnEndResult{}, nil
				}
				for _, r := range reports {
					event := log.Info().
						Str("output", r.Path).
						Str("size", humanize.Bytes(uint64(r.Bytes))).
						Int("inputs", r.InputCount)
					for i, in := range r.TopInputs {
						event = event.Str("top"+strconv.Itoa(i+1), in.Path+" "+humanize.Bytes(uint64(in.Bytes)))
					}
					event.Msg("output written")
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}
