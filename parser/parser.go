// Package parser converts loosely-typed extraction results into the fixed
// record shapes of the output datasets. Defaulting rules live here and only
// here, so downstream consumers never re-check for missing fields.
package parser

import (
	"strconv"
	"strings"

	"github.com/brandreport/harvester/markup"
	"github.com/brandreport/harvester/models"
)

// ProductFromFields builds a Product from an extracted field map. A listing
// row without a price node yields a null price, never a dropped record.
func ProductFromFields(fields markup.FieldMap) models.Product {
	return models.Product{
		Name:             fields.Str("name"),
		URL:              fields.Str("url"),
		Price:            ParsePrice(fields.Str("price")),
		ShortDescription: fields.Str("short_description"),
		Image:            fields.Str("image"),
	}
}

// TestimonialFromFields builds a Testimonial from an extracted field map.
// Author may legitimately be empty; rating defaults to zero symbols.
func TestimonialFromFields(fields markup.FieldMap) models.Testimonial {
	return models.Testimonial{
		Author: fields.Str("author"),
		Text:   fields.Str("text"),
		Rating: fields.Int("rating"),
	}
}

// ParsePrice parses a listing price into a decimal, tolerating currency
// symbols and surrounding whitespace. Unparsable or empty text is null.
func ParsePrice(text string) *float64 {
	cleaned := strings.TrimLeft(strings.TrimSpace(text), "$£€ ")
	if cleaned == "" {
		return nil
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &value
}
