package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	perrors "github.com/matzehuels/prereqgraph/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadOptionsFile reads pipeline options from a TOML (.toml) or YAML
// (.yaml, .yml) file. Unknown keys are rejected so that typos surface early.
// The result is validated but defaults are not applied.
func LoadOptionsFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Options{}, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return Options{}, fmt.Errorf("read config: %w", err)
	}

	var opts Options
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), &opts)
		if err != nil {
			return Options{}, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Options{}, perrors.New(perrors.ErrCodeInvalidConfig, "%s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
			return Options{}, perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	default:
		return Options{}, perrors.New(perrors.ErrCodeInvalidConfig, "unsupported config extension %q (use .toml, .yaml or .yml)", ext)
	}

	if err := validateStruct(&opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// validateStruct checks the struct tags of opts and reports the first
// failing field.
func validateStruct(opts *Options) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return perrors.New(perrors.ErrCodeInvalidConfig, "%s: failed %q check (got %v)", fe.Field(), fe.Tag(), fe.Value())
	}
	return perrors.Wrap(perrors.ErrCodeInvalidConfig, err, "validate options")
}
