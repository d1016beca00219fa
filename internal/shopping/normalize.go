package shopping

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPrice is returned for an empty, non-numeric or negative lprice.
var ErrInvalidPrice = errors.New("shopping: invalid price")

var boldTags = strings.NewReplacer("<b>", "", "</b>", "")

// Normalized is an Item reduced to what the price history stores.
type Normalized struct {
	Title string
	Link  string
	Image string
	Price int
}

// NormalizeTitle strips the <b> highlighting the search API wraps around
// matched terms. Other markup is left alone. Stripping repeats until nothing
// changes so nested fragments like "<<b>b>" cannot survive a single pass.
func NormalizeTitle(title string) string {
	for {
		next := boldTags.Replace(title)
		if next == title {
			return next
		}
		title = next
	}
}

// ParsePrice parses a string-encoded integer price.
func ParsePrice(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPrice)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative %d", ErrInvalidPrice, v)
	}
	return v, nil
}

// Normalize cleans the title and parses the lowest price of item.
func Normalize(item Item) (Normalized, error) {
	price, err := ParsePrice(item.LPrice)
	if err != nil {
		return Normalized{}, err
	}
	return Normalized{
		Title: NormalizeTitle(item.Title),
		Link:  item.Link,
		Image: item.Image,
		Price: price,
	}, nil
}
