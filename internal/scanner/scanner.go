package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"PolicyDigest/internal/domain"
)

// Request carries all parameters required to execute a scan.
type Request struct {
	// Day is the collection day; it is the fallback publication date.
	Day      time.Time
	SiteName string
	// URL overrides the scanner's built-in listing endpoint when set.
	URL     string
	Options map[string]string
}

// Option returns the trimmed site option or fallback when it is unset.
func (r Request) Option(key, fallback string) string {
	if v := strings.TrimSpace(r.Options[key]); v != "" {
		return v
	}
	return fallback
}

// Scanner captures a single source strategy (K-Startup, 기업마당, etc.).
// Scan returns whatever it could extract; a non-nil error means the source was
// unavailable or unparseable and the returned slice may be partial or empty.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Article, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation. Nil scanners are ignored.
func (r *Registry) Register(scanner Scanner) {
	if scanner == nil {
		return
	}
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %q is not registered (known: %s)", name, strings.Join(r.Names(), ", "))
}

// Names lists registered scanners alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
