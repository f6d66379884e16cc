package common

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"github.com/OUGC-Network/NewPoints-sub000/internal/models"
)

// SettingSeed is one default setting row shipped with the engine.
type SettingSeed struct {
	Plugin      string `yaml:"plugin"`
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Value       string `yaml:"value"`
	DispOrder   int64  `yaml:"disporder"`
}

type settingSeedFile struct {
	Settings []SettingSeed `yaml:"settings"`
}

// LoadSettingSeeds reads the default-settings yaml used by setup to
// populate a fresh install.
func LoadSettingSeeds(seedFile string) ([]models.Setting, error) {
	var seedPath string
	if filepath.IsAbs(seedFile) {
		seedPath = seedFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		seedPath = filepath.Join(wd, seedFile)
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", seedFile, err)
	}

	var file settingSeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", seedFile, err)
	}

	settings := make([]models.Setting, 0, len(file.Settings))
	for i, seed := range file.Settings {
		if seed.Name == "" {
			return nil, fmt.Errorf("setting seed at index %d missing name", i)
		}
		if seed.Plugin == "" {
			seed.Plugin = "main"
		}
		if seed.Type == "" {
			seed.Type = "text"
		}
		settings = append(settings, models.Setting{
			Plugin:      seed.Plugin,
			Name:        seed.Name,
			Title:       seed.Title,
			Description: seed.Description,
			Type:        seed.Type,
			Value:       seed.Value,
			DispOrder:   seed.DispOrder,
		})
	}

	return settings, nil
}
