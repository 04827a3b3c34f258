package availability

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"mubi1000/internal/fileutil"
	"mubi1000/internal/logging"
)

// ServiceSet is a set of technical service names. A nil set means "not
// configured".
type ServiceSet map[string]struct{}

// NewServiceSet builds a set from names, lower-cased and trimmed.
func NewServiceSet(names ...string) ServiceSet {
	set := make(ServiceSet, len(names))
	for _, name := range names {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// Has reports membership.
func (s ServiceSet) Has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

// Names returns the members sorted.
func (s ServiceSet) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LoadMyServices reads the user's service list (a JSON array of technical
// names). A missing, malformed, or empty file yields a nil set.
func LoadMyServices(path string, logger *slog.Logger) ServiceSet {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(logger, "failed to read my services", "my_services_unreadable",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "service preferences ignored"),
				logging.String(logging.FieldErrorHint, "check file permissions"))
		}
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		logging.WarnWithContext(logger, "ignoring malformed my services file", "my_services_malformed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "service preferences ignored"),
			logging.String(logging.FieldErrorHint, "the file must be a JSON array of technical names"))
		return nil
	}
	set := NewServiceSet(names...)
	if len(set) == 0 {
		return nil
	}
	return set
}

// SaveMyServices writes names as the user's service list.
func SaveMyServices(path string, names []string) error {
	set := NewServiceSet(names...)
	data, err := json.MarshalIndent(set.Names(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal services: %w", err)
	}
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("save services: %w", err)
	}
	return nil
}
