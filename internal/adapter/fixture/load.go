package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/float-query-service/internal/domain"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for fixture paths that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported fixture format")

var validate = validator.New()

// File is the on-disk fixture layout.
type File struct {
	GeneratedAt time.Time        `json:"generated_at" yaml:"generated_at"`
	Seed        int64            `json:"seed" yaml:"seed"`
	Profiles    []domain.Profile `json:"profiles" yaml:"profiles" validate:"required,min=1,dive"`
}

// Format is a fixture encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// Decode parses and validates fixture bytes.
func Decode(data []byte, format Format) (File, error) {
	var f File
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &f)
	case FormatYAML:
		err = yaml.Unmarshal(data, &f)
	default:
		return File{}, fmt.Errorf("decode %q: %w", format, ErrUnsupportedFormat)
	}
	if err != nil {
		return File{}, fmt.Errorf("decode %s fixture: %w", format, err)
	}
	if err := validate.Struct(f); err != nil {
		return File{}, fmt.Errorf("validate fixture: %w", err)
	}
	return f, nil
}

// Encode serializes a fixture.
func Encode(f File, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(f, "", "  ")
	case FormatYAML:
		return yaml.Marshal(f)
	default:
		return nil, fmt.Errorf("encode %q: %w", format, ErrUnsupportedFormat)
	}
}

// Load reads and validates the fixture at path.
func Load(path string) (File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return File{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read fixture: %w", err)
	}
	return Decode(data, format)
}

// Write encodes f in the format implied by path's extension.
func Write(path string, f File) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Encode(f, format)
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create fixture dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// NewStore builds the Profile Store from the fixture at path, or from the
// synthetic generator when path is empty.
func NewStore(path string, gen GeneratorConfig, logger *slog.Logger) (*domain.Store, error) {
	var profiles []domain.Profile
	source := "synthetic"
	if path != "" {
		f, err := Load(path)
		if err != nil {
			return nil, err
		}
		profiles = f.Profiles
		source = path
	} else {
		profiles = Generate(gen)
	}

	store, err := domain.NewStore(profiles)
	if err != nil {
		return nil, fmt.Errorf("build profile store: %w", err)
	}
	lo, hi := store.DepthRange()
	logger.Info("profile store ready",
		"source", source,
		"profiles", store.Len(),
		"active", store.ActiveCount(),
		"min_depth", lo,
		"max_depth", hi,
	)
	return store, nil
}
