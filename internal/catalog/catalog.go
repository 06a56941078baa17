// Package catalog holds the static region > subregion > locality mapping that feeds the cascading location
// selectors of the onboarding screens.
package catalog

import (
	_ "embed"
	"fmt"
	"github.com/planificaia/aliada/internal/errors"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

//go:embed locations.yaml
var defaultLocations []byte

var ErrInvalidCatalog = errors.NewSentinel("invalid location catalog")

type Subregion struct {
	Name       string   `yaml:"name"       json:"name"`
	Localities []string `yaml:"localities" json:"localities"`
}

type Region struct {
	Name       string      `yaml:"name"       json:"name"`
	Subregions []Subregion `yaml:"subregions" json:"subregions"`
}

// Place is the position of a locality in the catalog.
type Place struct {
	Region    string `json:"region"`
	Subregion string `json:"subregion"`
	Locality  string `json:"locality"`
}

// Label is the human readable form shown in selectors, e.g. "Lima (Lima, Perú)".
func (p Place) Label() string {
	return fmt.Sprintf("%s (%s, %s)", p.Locality, p.Subregion, p.Region)
}

// Catalog is immutable after Load. Lookups return copies.
type Catalog struct {
	regions []Region
	places  map[string]Place
	sorted  []string
}

type document struct {
	Regions []Region `yaml:"regions"`
}

// Load parses and validates a catalog document.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "unmarshal locations")
	}
	if len(doc.Regions) == 0 {
		return nil, errors.Wrap(ErrInvalidCatalog, "no regions")
	}

	c := &Catalog{
		regions: doc.Regions,
		places:  make(map[string]Place),
		sorted:  nil,
	}
	seenRegions := make(map[string]bool)
	for _, region := range doc.Regions {
		if strings.TrimSpace(region.Name) == "" {
			return nil, errors.Wrap(ErrInvalidCatalog, "blank region name")
		}
		if seenRegions[region.Name] {
			return nil, errors.Wrap(ErrInvalidCatalog, "duplicate region", slog.String("region", region.Name))
		}
		seenRegions[region.Name] = true

		seenSubregions := make(map[string]bool)
		for _, sub := range region.Subregions {
			if strings.TrimSpace(sub.Name) == "" || seenSubregions[sub.Name] {
				return nil, errors.Wrap(ErrInvalidCatalog, "blank or duplicate subregion",
					slog.String("region", region.Name), slog.String("subregion", sub.Name))
			}
			seenSubregions[sub.Name] = true
			for _, locality := range sub.Localities {
				if strings.TrimSpace(locality) == "" {
					return nil, errors.Wrap(ErrInvalidCatalog, "blank locality",
						slog.String("region", region.Name), slog.String("subregion", sub.Name))
				}
				// The first occurrence wins the reverse lookup.
				if _, ok := c.places[locality]; !ok {
					c.places[locality] = Place{Region: region.Name, Subregion: sub.Name, Locality: locality}
					c.sorted = append(c.sorted, locality)
				}
			}
		}
	}
	collate.New(language.Spanish).SortStrings(c.sorted)
	return c, nil
}

// Default returns the catalog embedded in the binary.
var Default = sync.OnceValues(func() (*Catalog, error) {
	return Load(defaultLocations)
})

// Regions lists the region names in catalog order.
func (c *Catalog) Regions() []string {
	names := make([]string, 0, len(c.regions))
	for _, r := range c.regions {
		names = append(names, r.Name)
	}
	return names
}

// Subregions lists the subregions of region. Unknown regions have none.
func (c *Catalog) Subregions(region string) []string {
	r, ok := c.region(region)
	if !ok {
		return []string{}
	}
	names := make([]string, 0, len(r.Subregions))
	for _, s := range r.Subregions {
		names = append(names, s.Name)
	}
	return names
}

// Localities lists the localities of subregion within region. Unknown keys have none.
func (c *Catalog) Localities(region, subregion string) []string {
	r, ok := c.region(region)
	if !ok {
		return []string{}
	}
	for _, s := range r.Subregions {
		if s.Name == subregion {
			return slices.Clone(s.Localities)
		}
	}
	return []string{}
}

// AllLocalities lists every locality once, in Spanish alphabetical order.
func (c *Catalog) AllLocalities() []string {
	return slices.Clone(c.sorted)
}

// Find is the reverse lookup from a locality to its region and subregion.
func (c *Catalog) Find(locality string) (Place, bool) {
	p, ok := c.places[locality]
	return p, ok
}

func (c *Catalog) region(name string) (Region, bool) {
	for _, r := range c.regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}
