package catalog

import "strings"

// Field names a filterable text attribute of a product.
type Field string

const (
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldCategory    Field = "category"
	FieldBrand       Field = "brand"
	FieldColor       Field = "color"
	FieldMaterial    Field = "material"
	FieldSize        Field = "size"
)

// SearchFields are the attributes a free-text search is matched against.
var SearchFields = []Field{FieldName, FieldDescription, FieldCategory, FieldBrand}

// OptionFields are the attributes summarised by the filter options digest.
var OptionFields = []Field{FieldCategory, FieldBrand, FieldColor, FieldMaterial, FieldSize}

// FieldMatch is a case-insensitive substring constraint on one field.
type FieldMatch struct {
	Field  Field
	Needle string
}

// Criteria is the storage-facing form of a query. Every populated member is
// ANDed; Search is a single OR-group across SearchFields.
type Criteria struct {
	Contains []FieldMatch
	Search   string
	PriceMin *float64
	PriceMax *float64
	Featured *bool
	Status   *Status
}

// BuildCriteria maps a filter to storage criteria. The public access level
// always pins status to active.
func BuildCriteria(f Filter, access AccessLevel) Criteria {
	var c Criteria
	for _, m := range []FieldMatch{
		{Field: FieldCategory, Needle: f.Category},
		{Field: FieldBrand, Needle: f.Brand},
		{Field: FieldColor, Needle: f.Color},
		{Field: FieldMaterial, Needle: f.Material},
		{Field: FieldSize, Needle: f.Size},
	} {
		m.Needle = strings.TrimSpace(m.Needle)
		if m.Needle != "" {
			c.Contains = append(c.Contains, m)
		}
	}
	c.Search = strings.TrimSpace(f.Search)
	c.PriceMin = copyFloat(f.MinPrice)
	c.PriceMax = copyFloat(f.MaxPrice)
	if f.Featured != nil {
		featured := *f.Featured
		c.Featured = &featured
	}
	if access != AccessAdmin {
		active := StatusActive
		c.Status = &active
	}
	return c
}

// activeCriteria selects every visible product.
func activeCriteria() Criteria {
	return BuildCriteria(Filter{}, AccessPublic)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// Value returns the text of field f on p.
func (p Product) Value(f Field) string {
	switch f {
	case FieldName:
		return p.Name
	case FieldDescription:
		return p.Description
	case FieldCategory:
		return p.Category
	case FieldBrand:
		return p.Brand
	case FieldColor:
		return p.Color
	case FieldMaterial:
		return p.Material
	case FieldSize:
		return p.Size
	default:
		return ""
	}
}
