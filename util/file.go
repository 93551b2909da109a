package util

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// ReadFileYAML unmarshals the YAML (or JSON) document at path into target.
func ReadFileYAML(path string, target interface{}) error {
	if !FileExists(path) {
		return errors.Errorf("file %s does not exist", path)
	}

	yamlData, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "invalid file: %s", path)
	}

	if err := yaml.Unmarshal(yamlData, target); err != nil {
		return errors.Wrapf(err, "problem parsing yaml/json from file %s", path)
	}

	return nil
}

// WriteFileYAML marshals data and writes it to path, creating the parent
// directory when needed.
func WriteFileYAML(path string, data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "problem marshaling yaml")
	}

	return errors.WithStack(WriteBytes(path, out))
}

// WriteBytes writes data to path, creating the parent directory when needed.
func WriteBytes(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && !FileExists(dir) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "problem creating directory '%s'", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	if _, err = f.Write(data); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(f.Sync())
}

func FileExists(path string) bool {
	if path == "" {
		return false
	}

	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}
