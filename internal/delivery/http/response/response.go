package response

import "time"

type SiteResponse struct {
	ID         string   `json:"id"`
	Categories []string `json:"categories"`
}

type SitesResponse struct {
	Sites []SiteResponse `json:"sites"`
}

type ProductResponse struct {
	Title     string `json:"title"`
	BuyButton bool   `json:"buy_button"`
}

// ScrapeResponse is returned for a run that produced at least one record.
type ScrapeResponse struct {
	Count        int               `json:"count"`
	Filename     string            `json:"filename"`
	DownloadURL  string            `json:"download_url"`
	Cached       bool              `json:"cached"`
	PagesVisited int               `json:"pages_visited"`
	DurationMS   int64             `json:"duration_ms"`
	Records      []ProductResponse `json:"records"`
}

// RunResponse is a DTO for a run history row, mirroring entity.RunSummary
type RunResponse struct {
	ID           int64     `json:"id"`
	Site         string    `json:"site"`
	Category     string    `json:"category,omitempty"`
	Filename     string    `json:"filename"`
	ProductCount int       `json:"product_count"`
	PagesVisited int       `json:"pages_visited"`
	LastPage     int       `json:"last_page"`
	StartedAt    time.Time `json:"started_at"`
	DurationMS   int64     `json:"duration_ms"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}
