package enums

// ProductAvailability is the seller-managed stock state of a product.
type ProductAvailability string

const (
	ProductAvailable    ProductAvailability = "available"
	ProductLowStock     ProductAvailability = "low_stock"
	ProductOutOfStock   ProductAvailability = "out_of_stock"
	ProductDiscontinued ProductAvailability = "discontinued"
)

var productAvailabilities = values[ProductAvailability]{
	ProductAvailable,
	ProductLowStock,
	ProductOutOfStock,
	ProductDiscontinued,
}

func (p ProductAvailability) IsValid() bool { return productAvailabilities.has(p) }

// Orderable reports whether checkout may include the product.
func (p ProductAvailability) Orderable() bool {
	return p == ProductAvailable || p == ProductLowStock
}

func ParseProductAvailability(value string) (ProductAvailability, error) {
	return productAvailabilities.parse("product availability", value)
}
