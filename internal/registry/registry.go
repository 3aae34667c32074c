package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"github.com/user/scraper-service/internal/adapter/dom"
	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/pkg/utils"
)

//go:embed sites.yaml
var defaultSites []byte

var (
	ErrSiteNotFound     = errors.New("no such site")
	ErrCategoryNotFound = errors.New("no such category")
	ErrCategoryRequired = errors.New("site requires a category")
	ErrInvalidRegistry  = errors.New("invalid site registry")
)

// Registry is the immutable site -> category -> descriptor table.
// Identifiers are case-insensitive.
type Registry struct {
	sites map[string]entity.SiteEntry
}

type siteConfig struct {
	entity.ExtractionDescriptor `mapstructure:",squash"`
	Categories                  map[string]entity.ExtractionDescriptor `mapstructure:"categories"`
}

// Default returns the registry compiled into the binary.
func Default() (*Registry, error) {
	return Parse(bytes.NewReader(defaultSites), "yaml")
}

// Load reads a registry file; the format follows the file extension.
// An empty path yields the default registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read site registry %s: %w", filepath.Base(path), err)
	}
	return build(v)
}

// Parse reads a registry document in the given viper format ("yaml", "json", "toml").
func Parse(r io.Reader, format string) (*Registry, error) {
	v := newViper()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("failed to parse site registry: %w", err)
	}
	return build(v)
}

func newViper() *viper.Viper {
	// Site ids may contain dots, so keep viper from treating them as nesting.
	return viper.NewWithOptions(viper.KeyDelimiter("::"))
}

func build(v *viper.Viper) (*Registry, error) {
	var raw map[string]siteConfig
	if err := v.UnmarshalKey("sites", &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRegistry, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no sites defined", ErrInvalidRegistry)
	}

	var problems []error
	sites := make(map[string]entity.SiteEntry, len(raw))
	for id, sc := range raw {
		id = normalize(id)
		entry := entity.SiteEntry{ID: id}
		direct := sc.ExtractionDescriptor != (entity.ExtractionDescriptor{})

		switch {
		case direct && len(sc.Categories) > 0:
			problems = append(problems, fmt.Errorf("site %q: has both a descriptor and categories", id))
			continue
		case direct:
			d := sc.ExtractionDescriptor
			if err := validate(d); err != nil {
				problems = append(problems, fmt.Errorf("site %q: %w", id, err))
				continue
			}
			entry.Descriptor = &d
		case len(sc.Categories) > 0:
			entry.Categories = make(map[string]entity.ExtractionDescriptor, len(sc.Categories))
			for cat, d := range sc.Categories {
				cat = normalize(cat)
				if err := validate(d); err != nil {
					problems = append(problems, fmt.Errorf("site %q category %q: %w", id, cat, err))
					continue
				}
				entry.Categories[cat] = d
			}
		default:
			problems = append(problems, fmt.Errorf("site %q: has neither a descriptor nor categories", id))
			continue
		}
		sites[id] = entry
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRegistry, errors.Join(problems...))
	}
	return &Registry{sites: sites}, nil
}

func validate(d entity.ExtractionDescriptor) error {
	u, err := url.Parse(d.ListingURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("listing url %q must be an absolute http(s) url", d.ListingURL)
	}

	required := map[string]string{
		"product_container_selector": d.ContainerSelector,
		"title_selector":             d.TitleSelector,
		"buy_button_selector":        d.BuyButtonSelector,
	}
	for name, selector := range required {
		if strings.TrimSpace(selector) == "" {
			return fmt.Errorf("%s is required", name)
		}
		if err := dom.ValidSelector(selector); err != nil {
			return err
		}
	}
	if d.LastPageSelector != "" {
		if err := dom.ValidSelector(d.LastPageSelector); err != nil {
			return err
		}
	}

	if d.PageURLTemplate != "" {
		if !strings.Contains(d.PageURLTemplate, entity.PagePlaceholder) {
			return fmt.Errorf("pagination_url_template %q has no %s placeholder", d.PageURLTemplate, entity.PagePlaceholder)
		}
		sample := strings.ReplaceAll(d.PageURLTemplate, entity.PagePlaceholder, "1")
		if _, err := utils.ToAbsoluteURL(u, sample); err != nil {
			return fmt.Errorf("pagination_url_template %q: %w", d.PageURLTemplate, err)
		}
	}
	if d.StartPage < 0 {
		return fmt.Errorf("pagination_start_page must not be negative, got %d", d.StartPage)
	}
	return nil
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Lookup returns the entry registered for siteID.
func (r *Registry) Lookup(siteID string) (entity.SiteEntry, error) {
	entry, ok := r.sites[normalize(siteID)]
	if !ok {
		return entity.SiteEntry{}, fmt.Errorf("%w: %q", ErrSiteNotFound, siteID)
	}
	return entry, nil
}

// Descriptor resolves the descriptor for a site and, when the site is
// split into categories, one of its categories.
func (r *Registry) Descriptor(siteID, categoryID string) (entity.ExtractionDescriptor, error) {
	entry, err := r.Lookup(siteID)
	if err != nil {
		return entity.ExtractionDescriptor{}, err
	}

	categoryID = normalize(categoryID)
	if !entry.HasCategories() {
		if categoryID != "" {
			return entity.ExtractionDescriptor{}, fmt.Errorf("%w: site %q has no categories", ErrCategoryNotFound, entry.ID)
		}
		return *entry.Descriptor, nil
	}

	if categoryID == "" {
		return entity.ExtractionDescriptor{}, fmt.Errorf("%w: %q", ErrCategoryRequired, entry.ID)
	}
	d, ok := entry.Categories[categoryID]
	if !ok {
		return entity.ExtractionDescriptor{}, fmt.Errorf("%w: %q in site %q", ErrCategoryNotFound, categoryID, entry.ID)
	}
	return d, nil
}

// Sites returns every site id, sorted.
func (r *Registry) Sites() []string {
	ids := make([]string, 0, len(r.sites))
	for id := range r.sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Categories returns the sorted category ids of a site; nil when it has none.
func (r *Registry) Categories(siteID string) ([]string, error) {
	entry, err := r.Lookup(siteID)
	if err != nil {
		return nil, err
	}
	if !entry.HasCategories() {
		return nil, nil
	}
	ids := make([]string, 0, len(entry.Categories))
	for id := range entry.Categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
