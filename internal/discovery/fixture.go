package discovery

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/recon"
)

//go:embed fixtures/default.yaml
var defaultFixture []byte

// FixtureSourceName tags casinos discovered from a fixture dataset.
const FixtureSourceName = "Fixture Data"

// Fixture is a static research dataset.
type Fixture struct {
	Casinos []FixtureCasino `yaml:"casinos" toml:"casinos"`
	Offers  []FixtureOffer  `yaml:"offers" toml:"offers"`
}

// FixtureCasino is one casino entry of a fixture.
type FixtureCasino struct {
	Name          string `yaml:"name" toml:"name"`
	State         string `yaml:"state" toml:"state"`
	Website       string `yaml:"website" toml:"website"`
	Brand         string `yaml:"brand" toml:"brand"`
	LicenseNumber string `yaml:"license_number" toml:"license_number"`
	Operational   *bool  `yaml:"is_operational" toml:"is_operational"`
}

// FixtureOffer is one offer entry of a fixture. OfferType is free text
// ("Weekend Reload", "Deposit Match") mapped to an offer category.
type FixtureOffer struct {
	Casino               string `yaml:"casino" toml:"casino"`
	State                string `yaml:"state" toml:"state"`
	OfferType            string `yaml:"offer_type" toml:"offer_type"`
	BonusAmount          string `yaml:"bonus_amount" toml:"bonus_amount"`
	MatchPercentage      string `yaml:"match_percentage" toml:"match_percentage"`
	WageringRequirements string `yaml:"wagering_requirements" toml:"wagering_requirements"`
	PromoCode            string `yaml:"promo_code" toml:"promo_code"`
	TermsURL             string `yaml:"terms_url" toml:"terms_url"`
}

// FixtureSource serves discovery results from a Fixture. It makes no
// network calls.
type FixtureSource struct {
	fixture Fixture
}

// NewFixtureSource wraps an in-memory fixture.
func NewFixtureSource(f Fixture) *FixtureSource {
	return &FixtureSource{fixture: f}
}

// DefaultFixture returns the source backed by the embedded dataset.
func DefaultFixture() (*FixtureSource, error) {
	f, err := ParseFixture(defaultFixture, ".yaml")
	if err != nil {
		return nil, err
	}
	return NewFixtureSource(f), nil
}

// LoadFixture reads a fixture from a .yaml, .yml or .toml file.
func LoadFixture(path string) (*FixtureSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: read %s", path)
	}
	f, err := ParseFixture(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewFixtureSource(f), nil
}

// ParseFixture decodes fixture data in the format named by ext.
func ParseFixture(data []byte, ext string) (Fixture, error) {
	var f Fixture
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return Fixture{}, eris.Wrap(err, "fixture: decode yaml")
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return Fixture{}, eris.Wrap(err, "fixture: decode toml")
		}
	default:
		return Fixture{}, eris.Errorf("fixture: unsupported format %q", ext)
	}
	return f, nil
}

// Name implements Source.
func (s *FixtureSource) Name() string { return "fixture" }

// DiscoverCasinos implements Source.
func (s *FixtureSource) DiscoverCasinos(_ context.Context, state model.State, exclude []string) ([]model.Casino, error) {
	var out []model.Casino
	for _, fc := range s.fixture.Casinos {
		if model.ResolveState(fc.State) != state {
			continue
		}
		c := model.Casino{
			Name:          fc.Name,
			State:         state,
			LicenseNumber: fc.LicenseNumber,
			Brand:         fc.Brand,
			Website:       fc.Website,
			IsOperational: fc.Operational == nil || *fc.Operational,
			Source:        FixtureSourceName,
		}
		out = append(out, c)
	}
	return FilterExcluded(out, exclude), nil
}

// ResearchOffers implements Source. Offers are matched to the casino by
// canonical name and state.
func (s *FixtureSource) ResearchOffers(_ context.Context, casino model.Casino) ([]model.RawRecord, error) {
	key := recon.CasinoKey(casino.Name, casino.State)
	var out []model.RawRecord
	for _, fo := range s.fixture.Offers {
		if recon.CasinoKey(fo.Casino, model.ResolveState(fo.State)) != key {
			continue
		}
		out = append(out, fo.record(casino))
	}
	return out, nil
}

func (fo FixtureOffer) record(casino model.Casino) model.RawRecord {
	desc := fo.OfferType
	if fo.BonusAmount != "" {
		desc += " - " + fo.BonusAmount
	}
	r := model.RawRecord{
		"casino_name":       casino.Name,
		"state":             string(casino.State),
		"offer_title":       recon.CategorizeOfferType(fo.OfferType),
		"offer_description": desc,
	}
	for k, v := range map[string]string{
		"bonus_amount":          fo.BonusAmount,
		"match_percentage":      fo.MatchPercentage,
		"wagering_requirements": fo.WageringRequirements,
		"promo_code":            fo.PromoCode,
		"terms_url":             fo.TermsURL,
		"source":                casino.Website,
	} {
		if v != "" {
			r[k] = v
		}
	}
	return r
}
