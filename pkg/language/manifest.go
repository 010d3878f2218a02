package language

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk shape of an optional language-override file,
// applied to the ALIASES/HAN_VARIANTS tables instead of runtime settings.
type Manifest struct {
	Aliases     map[string]string `yaml:"aliases"`
	HanVariants []string          `yaml:"han_variants"`
}

// LoadManifest reads a YAML override file and applies it to the package
// tables. A missing file is not an error: the manifest is optional.
func LoadManifest(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("language: read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("language: parse manifest %s: %w", path, err)
	}

	aliases := make(map[Code]Code, len(m.Aliases))
	for k, v := range m.Aliases {
		aliases[Code(k)] = Code(v)
	}
	hanVariants := make(map[Code]bool, len(m.HanVariants))
	for _, v := range m.HanVariants {
		hanVariants[Code(v)] = true
	}
	ApplyOverrides(aliases, hanVariants)
	return nil
}
