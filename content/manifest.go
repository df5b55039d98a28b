package content

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Visibility of a parameter.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// ParameterDefinition describes one render parameter.
type ParameterDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Visibility  Visibility `json:"visibility,omitempty"`
}

// Manifest is a published Pin version.
type Manifest struct {
	Title       string                `json:"title,omitempty"`
	Tagline     string                `json:"tagline,omitempty"`
	UICode      string                `json:"uiCode"`
	DataCode    string                `json:"dataCode,omitempty"`
	Parameters  []ParameterDefinition `json:"parameters,omitempty"`
	PreviewData map[string]any        `json:"previewData,omitempty"`
	UserConfig  map[string]any        `json:"userConfig,omitempty"`
	AccentColor string                `json:"accentColor,omitempty"`
}

// BaseProps returns previewData overlaid with userConfig.
func (m *Manifest) BaseProps() map[string]any {
	props := make(map[string]any, len(m.PreviewData)+len(m.UserConfig))
	for k, v := range m.PreviewData {
		props[k] = v
	}
	for k, v := range m.UserConfig {
		props[k] = v
	}
	return props
}

// ParseManifest decodes a manifest document.
func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedManifest, err)
	}
	for i, p := range m.Parameters {
		if p.Visibility == "" {
			m.Parameters[i].Visibility = Public
		}
	}
	return &m, nil
}
