package ingest

import (
	"fmt"
	"os"
)

// Document classes with dedicated archive directories.
const (
	ClassContract      = "contract"
	ClassResearchPaper = "research_paper"
	ClassInvoice       = "invoice"
	ClassUnknown       = "unknown"

	ClassQuarantine = "quarantine"
	ClassStaging    = "temp_staging"
)

// Dirs maps document classes to filesystem directories. Unknown classes
// route to quarantine.
type Dirs map[string]string

// DefaultDirs returns the directory layout rooted at base.
func DefaultDirs(base string) Dirs {
	return Dirs{
		ClassContract:      base + "/processed/contracts",
		ClassResearchPaper: base + "/processed/papers",
		ClassInvoice:       base + "/processed/invoices",
		ClassQuarantine:    base + "/quarantine",
		ClassStaging:       base + "/staging",
	}
}

// Bootstrap creates every directory in the map.
func (d Dirs) Bootstrap() error {
	for class, path := range d {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create %s dir: %w", class, err)
		}
	}
	return nil
}

// DirFor returns the directory for a document class, falling back to
// quarantine for classes without a configured home.
func (d Dirs) DirFor(class string) string {
	if path, ok := d[class]; ok {
		return path
	}
	return d[ClassQuarantine]
}
