package models

import "encoding/json"

// CartLine is one product in a cart. ProductID is unique within a cart and
// Quantity is always positive.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is persisted as a bare JSON array of lines.
type Cart struct {
	Lines []CartLine
}

func (c Cart) MarshalJSON() ([]byte, error) {
	if c.Lines == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Lines)
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var lines []CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	c.Lines = lines
	return nil
}

func (c Cart) ItemCount() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

func (c Cart) Find(productID string) (CartLine, bool) {
	for _, line := range c.Lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

func (c Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// CartItem is a priced cart line.
type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
	ImageURL  string  `json:"imageUrl,omitempty"`
}

// CartSummary is a cart priced against the current catalog. Lines whose product
// no longer exists or is inactive are listed in Missing and left out of totals.
type CartSummary struct {
	Items     []CartItem `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	Currency  string     `json:"currency"`
	ItemCount int        `json:"itemCount"`
	Missing   []string   `json:"missing,omitempty"`
}
