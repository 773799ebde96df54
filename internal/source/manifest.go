package source

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Spec says where a source's export lives. Location is a path relative to
// the sources directory, an absolute path, or an http(s)/ftp URL.
type Spec struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Optional bool   `yaml:"optional"`
	Disabled bool   `yaml:"disabled"`
}

// Manifest lists the sources to load.
type Manifest struct {
	Sources []Spec `yaml:"sources"`
}

// DefaultSpecs returns the sources as laid out by the scrapers that produce them.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: BDSCoalition, Location: "bdscoalition.ca/BDS Shame List (20AUG2025).csv"},
		{Name: AFSC, Location: "investigate.afsc.org/investigate-dataset-july-2025.csv"},
		{Name: TheWitness, Location: "boycott.thewitness/sample_output.json"},
		{Name: WhoProfits, Location: "dontbuyintooccupation.org/output/who_profits_results_latest.json", Optional: true},
	}
}

// LoadManifest reads a YAML manifest. An empty path returns DefaultSpecs.
// Sources missing from the manifest keep their default spec.
func LoadManifest(path string) ([]Spec, error) {
	if path == "" {
		return DefaultSpecs(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "source: parse manifest %s", path)
	}

	specs := DefaultSpecs()
	index := make(map[string]int, len(specs))
	for i, s := range specs {
		index[s.Name] = i
	}
	for _, s := range m.Sources {
		if i, ok := index[s.Name]; ok {
			if s.Location == "" {
				s.Location = specs[i].Location
			}
			specs[i] = s
			continue
		}
		specs = append(specs, s)
	}

	return specs, nil
}
