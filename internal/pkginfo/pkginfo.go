// Package pkginfo reads the fields of package.json that end up in the bundle.
package pkginfo

import (
	"encoding/json"
	"os"
	"path/filepath"

	packerrors "github.com/tain335/svpack/internal/errors"
)

const FileName = "package.json"

type Package struct {
	Name     string            `json:"name"`
	Version  string            `json:"version"`
	Homepage string            `json:"homepage"`
	Scripts  map[string]string `json:"scripts"`
}

// Read loads package.json from dir.
func Read(dir string) (*Package, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, packerrors.Wrapf(err, packerrors.ErrConfigLoad, "reading %s", path)
	}
	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, packerrors.Wrapf(err, packerrors.ErrConfigLoad, "parsing %s", path)
	}
	return &pkg, nil
}

// ReplaceValues are the build constants substituted into sources.
func (p *Package) ReplaceValues() map[string]string {
	return map[string]string{
		"pkgVersion":  p.Version,
		"pkgHomepage": p.Homepage,
	}
}

func (p *Package) HasScript(name string) bool {
	_, ok := p.Scripts[name]
	return ok
}
