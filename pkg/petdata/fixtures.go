package petdata

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// fixtureFile is the on-disk shape of a seed fixture.
type fixtureFile struct {
	Shelters []Shelter        `yaml:"shelters"`
	Pets     map[string][]Pet `yaml:"pets,omitempty"`
}

// fixtureClient serves shelter/pet data from a YAML fixture instead of the
// live API, for offline seeding.
type fixtureClient struct {
	file fixtureFile
}

// LoadFixture reads a YAML seed fixture and returns a Client backed by it.
func LoadFixture(path string) (Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "petdata: read fixture %s", path)
	}

	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "petdata: parse fixture %s", path)
	}
	return &fixtureClient{file: file}, nil
}

func (c *fixtureClient) ListShelters(context.Context) ([]Shelter, error) {
	return c.file.Shelters, nil
}

func (c *fixtureClient) ListPets(_ context.Context, shelterID string) ([]Pet, error) {
	return c.file.Pets[shelterID], nil
}

// WriteFixture saves shelters and pets as a YAML seed fixture at path.
func WriteFixture(path string, shelters []Shelter, pets map[string][]Pet) error {
	data, err := yaml.Marshal(fixtureFile{Shelters: shelters, Pets: pets})
	if err != nil {
		return eris.Wrap(err, "petdata: marshal fixture")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "petdata: write fixture %s", path)
	}
	return nil
}
