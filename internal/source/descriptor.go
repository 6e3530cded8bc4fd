package source

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Kind selects the adapter implementation for a descriptor.
type Kind string

const (
	// KindLondon is the Planning London Datahub guest API.
	KindLondon Kind = "london"
	// KindOpenDataSoft is an OpenDataSoft explore v2.1 records endpoint.
	KindOpenDataSoft Kind = "opendatasoft"
	// KindCKAN is a CKAN datastore_search endpoint.
	KindCKAN Kind = "ckan"
	// KindFeed is an RSS or Atom weekly list.
	KindFeed Kind = "feed"
	// KindHTML is an HTML page holding a results table.
	KindHTML Kind = "html"
	// KindCSV is a bulk CSV download over http(s) or ftp.
	KindCSV Kind = "csv"
	// KindManual marks councils that publish no machine-readable data.
	// Manual descriptors must be disabled.
	KindManual Kind = "manual"
)

// Mapping holds the field-precedence chain for each canonical attribute.
// Keys are matched case-insensitively; the first non-empty value wins.
type Mapping struct {
	Reference   []string `yaml:"reference,omitempty"`
	Address     []string `yaml:"address,omitempty"`
	Description []string `yaml:"description,omitempty"`
	Applicant   []string `yaml:"applicant,omitempty"`
	Status      []string `yaml:"status,omitempty"`
	Date        []string `yaml:"date,omitempty"`
	Link        []string `yaml:"link,omitempty"`
}

// Descriptor describes one council data source. Descriptors are plain data;
// the Registry turns them into Sources once at startup.
type Descriptor struct {
	Name       string   `yaml:"name"`
	Title      string   `yaml:"title"`
	Kind       Kind     `yaml:"kind"`
	URL        string   `yaml:"url"`
	URLs       []string `yaml:"urls,omitempty"`
	ResourceID string   `yaml:"resource_id,omitempty"`
	Enabled    bool     `yaml:"enabled"`
	Note       string   `yaml:"note,omitempty"`

	// Link is a template for the application page. "{reference}" is
	// replaced with the query-escaped reference.
	Link string `yaml:"link,omitempty"`

	// DateField names the upstream date column used to order and filter
	// OpenDataSoft queries.
	DateField string `yaml:"date_field,omitempty"`

	// Selector picks the results table for html sources. Default: "table".
	Selector string `yaml:"selector,omitempty"`

	// Fields overrides the adapter's default precedence chains. Chains given
	// here are tried before the defaults.
	Fields Mapping `yaml:"fields,omitempty"`
}

// DisplayName returns Title, or Name when no title is set.
func (d Descriptor) DisplayName() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// Endpoints returns URL followed by any alternates, skipping blanks.
func (d Descriptor) Endpoints() []string {
	out := make([]string, 0, 1+len(d.URLs))
	for _, u := range append([]string{d.URL}, d.URLs...) {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Validate checks a descriptor is usable.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return eris.New("source: descriptor name is required")
	}
	switch d.Kind {
	case KindLondon, KindOpenDataSoft, KindFeed, KindHTML, KindCSV:
	case KindCKAN:
		if d.ResourceID == "" {
			return eris.Errorf("source: %s: ckan descriptor needs resource_id", d.Name)
		}
	case KindManual:
		if d.Enabled {
			return eris.Errorf("source: %s: manual sources cannot be enabled", d.Name)
		}
		return nil
	default:
		return eris.Errorf("source: %s: unknown kind %q", d.Name, d.Kind)
	}
	if d.Enabled && len(d.Endpoints()) == 0 {
		return eris.Errorf("source: %s: url is required", d.Name)
	}
	return nil
}

type descriptorFile struct {
	Sources []Descriptor `yaml:"sources"`
}

// LoadDescriptors reads a YAML descriptor list of the form
//
//	sources:
//	  - name: camden
//	    kind: opendatasoft
//	    url: https://...
func LoadDescriptors(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read descriptors %s", path)
	}
	var f descriptorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "source: parse descriptors %s", path)
	}
	if len(f.Sources) == 0 {
		return nil, eris.Errorf("source: %s lists no sources", path)
	}
	return f.Sources, nil
}
