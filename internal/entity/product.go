package entity

// ProductRecord is one product container found on a listing page.
type ProductRecord struct {
	Title        string `json:"title"`
	HasBuyButton bool   `json:"buy_button"`
}
