package cfg

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// YAML returns a Source that reads the YAML file at path. When strict is set,
// fields that dst does not declare are an error.
func YAML(path string, strict bool) Source {
	return func(dst interface{}) error {
		y, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "Error reading config file")
		}
		return dYAML(y, strict)(dst)
	}
}

// dYAML returns a YAML source for in-memory data.
func dYAML(y []byte, strict bool) Source {
	return func(dst interface{}) error {
		if strict {
			return yaml.UnmarshalStrict(y, dst)
		}
		return yaml.Unmarshal(y, dst)
	}
}
