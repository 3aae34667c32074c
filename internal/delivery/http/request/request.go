package request

type ScrapeRequest struct {
	Site     string `json:"site"`
	Category string `json:"category"`
	Debug    bool   `json:"debug"`
	Force    bool   `json:"force"` // scrape even if a recent run exists
}
