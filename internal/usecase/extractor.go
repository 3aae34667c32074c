package usecase

import (
	"errors"
	"fmt"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

// ErrTitleNotFound means a product container lacks its title element,
// which usually signals that the site markup no longer matches the descriptor.
var ErrTitleNotFound = errors.New("title element not found in product container")

// ExtractPage returns one record per product container, in document order.
func ExtractPage(page repository.Node, d entity.ExtractionDescriptor) ([]entity.ProductRecord, error) {
	containers := page.LocateAll(d.ContainerSelector)
	records := make([]entity.ProductRecord, 0, len(containers))
	for i, c := range containers {
		title, ok := c.LocateFirst(d.TitleSelector)
		if !ok {
			return nil, fmt.Errorf("%w: container %d, selector %q", ErrTitleNotFound, i, d.TitleSelector)
		}
		records = append(records, entity.ProductRecord{
			Title:        title.Text(),
			HasBuyButton: c.Count(d.BuyButtonSelector) > 0,
		})
	}
	return records, nil
}
