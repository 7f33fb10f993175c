package rename

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a rename table from a file. The format follows the extension:
// .toml is parsed with go-toml, .yaml/.yml/.json with the YAML parser
// (YAML is a superset of JSON). The file is a flat mapping from old field
// token to new field token:
//
//	damage = "baseDamage"
//	speed = "moveSpeed"
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading rename table")
	}

	var table Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &table); err != nil {
			return nil, errors.Wrapf(err, "parsing rename table %s", path)
		}
	case ".yaml", ".yml", ".json":
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, errors.Wrapf(err, "parsing rename table %s", path)
		}
	default:
		return nil, errors.Newf("unsupported rename table format %q (want .toml, .yaml, .yml, or .json)", filepath.Ext(path))
	}

	return table, nil
}
