package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/freshvalley/dairy-shop-backend/internal/service"
	"github.com/freshvalley/dairy-shop-backend/internal/util"
)

type CatalogHandler struct {
	catalog *service.CatalogService
}

func RegisterCatalog(e *echo.Echo, auth *service.AuthService, catalog *service.CatalogService) {
	handler := &CatalogHandler{catalog: catalog}

	e.GET("/api/v1/products", handler.listProducts)
	e.POST("/api/v1/products/:id/image", handler.uploadImage, RequireAuth(auth))
}

func (h *CatalogHandler) listProducts(c echo.Context) error {
	products, err := h.catalog.ListProducts(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("unable to load products"))
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"products": products,
		"count":    len(products),
	})
}

func (h *CatalogHandler) uploadImage(c echo.Context) error {
	productID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("product id must be a valid UUID"))
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("image file is required"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("unable to read uploaded image"))
	}
	defer file.Close()

	product, err := h.catalog.AttachImage(c.Request().Context(), productID, service.ProductImageUpload{
		Reader:      file,
		Size:        fileHeader.Size,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(echo.HeaderContentType),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			return c.JSON(http.StatusNotFound, util.Error("product not found"))
		case errors.Is(err, service.ErrProductImageInvalid):
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		case errors.Is(err, service.ErrImageStorageOff):
			return c.JSON(http.StatusServiceUnavailable, util.Error("image storage is not configured"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not store product image"))
		}
	}

	return c.JSON(http.StatusOK, util.Envelope{
		"message": "Product image updated",
		"product": product,
	})
}
