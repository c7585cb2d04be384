package schema

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a set of sheet schemas, keyed by sheet name.
type File struct {
	Sheets map[string]Schema `yaml:"sheets"`
}

// LoadFile reads a YAML schema file and sanitises every sheet in it.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schema file %s", path)
	}
	return Parse(data)
}

// Parse decodes a YAML schema document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse schema file")
	}
	for name, s := range f.Sheets {
		f.Sheets[name] = Sanitize(s)
	}
	return &f, nil
}
