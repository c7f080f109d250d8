package entity

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var catalogueYAML []byte

// Definition describes one entity table.
type Definition struct {
	Tag        string `yaml:"tag"`
	Table      string `yaml:"table"`
	Label      string `yaml:"label"`
	TitleField string `yaml:"title_field"`
}

type catalogue struct {
	Entities []Definition `yaml:"entities"`
}

// LoadCatalogue parses the embedded entity catalogue.
func LoadCatalogue() ([]Definition, error) {
	return parseCatalogue(catalogueYAML)
}

func parseCatalogue(data []byte) ([]Definition, error) {
	var parsed catalogue
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal entity catalogue: %w", err)
	}

	seen := make(map[string]struct{}, len(parsed.Entities))
	for i, def := range parsed.Entities {
		if strings.TrimSpace(def.Tag) == "" || strings.TrimSpace(def.Table) == "" {
			return nil, fmt.Errorf("entity catalogue entry %d: tag and table are required", i)
		}
		if _, dup := seen[def.Tag]; dup {
			return nil, fmt.Errorf("entity catalogue: duplicate tag %q", def.Tag)
		}
		seen[def.Tag] = struct{}{}

		if def.Label == "" {
			parsed.Entities[i].Label = def.Tag
		}
	}

	return parsed.Entities, nil
}

// DisplayName picks the human-readable title out of a row snapshot.
func (d Definition) DisplayName(snapshot json.RawMessage) string {
	if d.TitleField == "" || len(snapshot) == 0 {
		return ""
	}

	var fields map[string]any
	if err := json.Unmarshal(snapshot, &fields); err != nil {
		return ""
	}

	title, _ := fields[d.TitleField].(string)
	return title
}
