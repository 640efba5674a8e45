package vendo

// DefaultImageURL is used for any product id without an entry in the table.
const DefaultImageURL = "/assets/images/default-product.png"

var images = map[string]string{
	"pampers-small":  "/assets/images/pampers-small.png",
	"pampers-medium": "/assets/images/pampers-medium.png",
	"pampers-large":  "/assets/images/pampers-large.png",
	"wipes":          "/assets/images/wipes.png",
	"tissue":         "/assets/images/tissue.jpg",
}

// productImages is built once from the slot allow-list so the id->image
// mapping has a single source.
var productImages = buildProductImages()

func buildProductImages() map[int]string {
	out := make(map[int]string)
	for _, defs := range slots {
		for _, s := range defs {
			out[s.id] = images[s.imageKey]
		}
	}
	return out
}

// ImageFor returns the catalog image for productID, or DefaultImageURL.
func ImageFor(productID int) string {
	if url, ok := productImages[productID]; ok && url != "" {
		return url
	}
	return DefaultImageURL
}
