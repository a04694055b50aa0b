package handlers

import (
	"bytes"
	"log"
	"net/url"

	"catalog/internal/export"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// Form fields of the catalog page. The two triggers are submit buttons, so
// only the clicked one is sent.
const (
	FieldSearch    = "search"
	FieldShowAll   = "show_all"
	FieldProductID = "product_id"
)

const indexView = "index"

// CatalogHandler handles the catalog page and the catalog JSON API.
type CatalogHandler struct {
	service *services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		service: service,
	}
}

// RegisterRoutes registers the HTML page routes.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleIndex)
	router.Post("/", h.HandleSubmit)
}

// RegisterAPIRoutes registers the JSON and CSV routes.
func (h *CatalogHandler) RegisterAPIRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/export.csv", h.HandleExportCSV)
	productRoutes.Get("/:id", h.HandleGetProduct)
}

// HandleIndex renders the empty search page.
func (h *CatalogHandler) HandleIndex(c *fiber.Ctx) error {
	return c.Render(indexView, viewData(services.Result{}, ""))
}

// HandleSubmit runs the query selected by the submitted form and renders the result.
func (h *CatalogHandler) HandleSubmit(c *fiber.Ctx) error {
	req := services.Request{
		Mode: services.ModeFromTriggers(formHas(c, FieldSearch), formHas(c, FieldShowAll)),
	}
	if req.Mode == services.ModeSearch {
		// Spans and events keep the term after the request ends.
		req.SearchTerm = utils.CopyString(c.FormValue(FieldProductID))
	}

	result, err := h.service.Dispatch(c.UserContext(), req)
	if err != nil {
		log.Printf("Error running %s query: %v", req.Mode, err)
		return c.Status(fiber.StatusInternalServerError).
			Render(indexView, viewData(result, "Could not retrieve products. Please try again later."))
	}
	return c.Render(indexView, viewData(result, ""))
}

// HandleListProducts returns every product.
func (h *CatalogHandler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.service.ListAll(c.UserContext())
	if err != nil {
		log.Printf("Error getting all products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
			"error":   err.Error(),
		})
	}
	return c.JSON(products)
}

// HandleGetProduct returns the products matching the path identifier. An
// unknown identifier yields an empty array, not a 404. The identifier is
// percent-decoded so IDs with spaces or slashes match exactly.
func (h *CatalogHandler) HandleGetProduct(c *fiber.Ctx) error {
	productID, err := url.PathUnescape(utils.CopyString(c.Params("id")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product ID",
			"error":   err.Error(),
		})
	}
	products, err := h.service.FindByIdentifier(c.UserContext(), productID)
	if err != nil {
		log.Printf("Error getting product by ID %s: %v", productID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve product",
			"error":   err.Error(),
		})
	}
	if products == nil {
		return c.JSON([]interface{}{})
	}
	return c.JSON(products)
}

// HandleExportCSV returns every product as a CSV attachment.
func (h *CatalogHandler) HandleExportCSV(c *fiber.Ctx) error {
	products, err := h.service.ListAll(c.UserContext())
	if err != nil {
		log.Printf("Error exporting products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not export products",
			"error":   err.Error(),
		})
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, products); err != nil {
		log.Printf("Error encoding products as CSV: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not export products",
			"error":   err.Error(),
		})
	}

	c.Attachment("products.csv")
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}

func viewData(result services.Result, errMessage string) fiber.Map {
	return fiber.Map{
		"Queried":    result.Queried,
		"Products":   result.Products,
		"SearchTerm": result.SearchTerm,
		"Error":      errMessage,
	}
}

// formHas reports whether key was submitted, even with an empty value.
func formHas(c *fiber.Ctx, key string) bool {
	if c.Request().PostArgs().Has(key) {
		return true
	}
	if form, err := c.MultipartForm(); err == nil {
		_, ok := form.Value[key]
		return ok
	}
	return false
}
