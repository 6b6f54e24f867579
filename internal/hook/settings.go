package hook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/go-pycheck/internal/config"
	prerrors "github.com/mrz1836/go-pycheck/internal/errors"
)

// bundleFile is the shape of a hook bundle file. Settings may sit at the top
// level or under a "config" key.
type bundleFile struct {
	Config *config.HookSettings `yaml:"config"`
}

// LoadSettings reads hook settings from a YAML bundle file on top of base.
// Keys missing from the file keep their value from base.
func LoadSettings(path string, base config.HookSettings) (config.HookSettings, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, fmt.Errorf("%w: %s", prerrors.ErrConfigNotFound, path)
		}
		return base, err
	}
	return ParseSettings(data, base)
}

// ParseSettings decodes YAML hook settings on top of base and validates the result
func ParseSettings(data []byte, base config.HookSettings) (config.HookSettings, error) {
	settings := cloneSettings(base)

	var bundle bundleFile
	if err := decodeYAML(data, &bundle); err != nil {
		return base, err
	}
	if bundle.Config != nil {
		nested := cloneSettings(base)
		if err := decodeNested(data, &nested); err != nil {
			return base, err
		}
		settings = nested
	} else if err := decodeYAML(data, &settings); err != nil {
		return base, err
	}

	if err := validator.New().Struct(settings); err != nil {
		return base, fmt.Errorf("invalid hook settings: %w", err)
	}
	return settings, nil
}

// decodeNested decodes the "config" mapping into settings, keeping the
// values already present for missing keys
func decodeNested(data []byte, settings *config.HookSettings) error {
	var doc struct {
		Config yaml.Node `yaml:"config"`
	}
	if err := decodeYAML(data, &doc); err != nil {
		return err
	}
	return doc.Config.Decode(settings)
}

func decodeYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("cannot parse hook settings: %w", err)
	}
	return nil
}

func cloneSettings(s config.HookSettings) config.HookSettings {
	s.FilePatterns = append([]string(nil), s.FilePatterns...)
	s.Checks = append([]string(nil), s.Checks...)
	return s
}
