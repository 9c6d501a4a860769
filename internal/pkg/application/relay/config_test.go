package relay

import (
	"bytes"
	"testing"

	"github.com/matryer/is"
)

func TestLoadConfig(t *testing.T) {
	is, config := setupConfigTest(t)

	is.Equal(len(config.Sites), 2) // should have two sites
}

func TestLoadSite(t *testing.T) {
	is, config := setupConfigTest(t)

	site, ok := config.Site("enwiki")
	is.True(ok)

	is.Equal(site.ID, "1")
	is.Equal(site.Name, "English Wikipedia")
	is.Equal(len(site.Types), 2) // should find two notification types
}

func TestUnknownSiteIsNotFound(t *testing.T) {
	is, config := setupConfigTest(t)

	_, ok := config.Site("dewiki")
	is.True(!ok) // dewiki is not configured
}

func TestSiteAllowsConfiguredTypes(t *testing.T) {
	is, config := setupConfigTest(t)

	enwiki, _ := config.Site("enwiki")
	is.True(enwiki.Allows("mention"))
	is.True(!enwiki.Allows("maintenance")) // not in the list of types

	meta, _ := config.Site("meta")
	is.True(meta.Allows("maintenance")) // the wildcard allows any type
}

func setupConfigTest(t *testing.T) (*is.I, *Config) {
	is := is.New(t)
	cfgData := bytes.NewBuffer([]byte(configFile))
	config, err := LoadConfiguration(cfgData)
	is.NoErr(err)

	return is, config
}

var configFile string = `
sites:
  - key: enwiki
    id: "1"
    name: English Wikipedia
    types:
    - mention
    - edit-user-talk
  - key: meta
    id: "2"
    name: Meta-Wiki
    types:
    - "*"
`
