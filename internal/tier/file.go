package tier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk YAML shape for limit overrides:
//
//	tiers:
//	  basic:
//	    max_projects: 20
//	    max_monthly_expenses: 1000
//	    max_users: 10
type catalogFile struct {
	Tiers map[Tier]Limits `yaml:"tiers"`
}

// LoadCatalog builds a catalog from the defaults plus a YAML override file.
// An empty path returns the compiled-in catalog unchanged. Overrides replace
// a tier's full Limits row; unknown tier names and negative limits other than
// the Unlimited sentinel are rejected.
func LoadCatalog(path string) (*Catalog, error) {
	cat := NewCatalog()
	if path == "" {
		return cat, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse tier catalog file: %w", err)
	}

	for t, l := range file.Tiers {
		if !t.IsValid() {
			return nil, fmt.Errorf("tier catalog file: unknown tier %q", t)
		}
		if err := validateLimits(l); err != nil {
			return nil, fmt.Errorf("tier catalog file: tier %q: %w", t, err)
		}
		cat.limits[t] = l
	}

	return cat, nil
}

func validateLimits(l Limits) error {
	for _, v := range []int{l.MaxProjects, l.MaxMonthlyExpenses, l.MaxUsers} {
		if v < 0 && v != Unlimited {
			return fmt.Errorf("limit %d is negative and not the unlimited sentinel", v)
		}
	}
	return nil
}
