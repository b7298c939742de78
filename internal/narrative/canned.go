package narrative

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/property-report/internal/model"
)

//go:embed canned.yaml
var defaultCanned []byte

// Canned holds the fixed payloads used when a job fails (fallback) or runs
// in offline mode (demo).
type Canned struct {
	Summary struct {
		Fallback model.SummaryPayload `yaml:"fallback"`
		Demo     model.SummaryPayload `yaml:"demo"`
	} `yaml:"summary"`
	Valuation struct {
		Fallback model.ValuationPayload `yaml:"fallback"`
		Demo     model.ValuationPayload `yaml:"demo"`
	} `yaml:"valuation"`
}

// DefaultCanned returns the built-in payloads.
func DefaultCanned() *Canned {
	c, err := parseCanned(defaultCanned)
	if err != nil {
		panic(eris.Wrap(err, "narrative: embedded canned payloads"))
	}
	return c
}

// LoadCanned reads payloads from path, or returns the built-in payloads when
// path is empty. Sections missing from the file keep their built-in values.
func LoadCanned(path string) (*Canned, error) {
	if path == "" {
		return DefaultCanned(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "narrative: read canned payloads %s", path)
	}

	c := DefaultCanned()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, eris.Wrapf(err, "narrative: parse canned payloads %s", path)
	}
	return c, nil
}

func parseCanned(data []byte) (*Canned, error) {
	var c Canned
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
