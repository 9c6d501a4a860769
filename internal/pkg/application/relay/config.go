package relay

import (
	"io"
	"slices"

	yaml "gopkg.in/yaml.v2"
)

// AnyType allows a site to send notifications of any type.
const AnyType string = "*"

type SiteConfig struct {
	Key   string   `yaml:"key"`
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	Types []string `yaml:"types"`
}

func (s *SiteConfig) Allows(notificationType string) bool {
	return slices.Contains(s.Types, AnyType) || slices.Contains(s.Types, notificationType)
}

type Config struct {
	Sites []SiteConfig `yaml:"sites"`
}

func (c *Config) Site(key string) (*SiteConfig, bool) {
	for idx := range c.Sites {
		if c.Sites[idx].Key == key {
			return &c.Sites[idx], true
		}
	}

	return nil, false
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)

	return cfg, err
}
