package entity

import "strings"

// PagePlaceholder is substituted with the page number in PageURLTemplate.
const PagePlaceholder = "{page}"

// ExtractionDescriptor is the static per-site-per-category configuration driving one scrape.
type ExtractionDescriptor struct {
	ListingURL        string `mapstructure:"url"`
	ContainerSelector string `mapstructure:"product_container_selector"`
	TitleSelector     string `mapstructure:"title_selector"`
	BuyButtonSelector string `mapstructure:"buy_button_selector"`
	LastPageSelector  string `mapstructure:"pagination_last_selector"` // optional
	PageURLTemplate   string `mapstructure:"pagination_url_template"`  // optional, contains {page}
	StartPage         int    `mapstructure:"pagination_start_page"`
}

// Paginated reports whether pages beyond the listing URL can be visited.
func (d ExtractionDescriptor) Paginated() bool {
	return strings.TrimSpace(d.PageURLTemplate) != ""
}

// SiteEntry is either a direct descriptor or a set of categories, never both.
type SiteEntry struct {
	ID         string
	Descriptor *ExtractionDescriptor
	Categories map[string]ExtractionDescriptor
}

// HasCategories reports whether the site must be scraped per category.
func (s SiteEntry) HasCategories() bool {
	return len(s.Categories) > 0
}
