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

type OrderHandler struct {
	orders *service.OrderService
}

type OrderItemRequest struct {
	ProductID string  `json:"product_id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Price     float64 `json:"price" example:"4.99"`
	Quantity  int     `json:"quantity" example:"2"`
}

type PlaceOrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	PaymentMethod   string             `json:"payment_method" example:"card"`
	DeliveryAddress string             `json:"delivery_address" example:"1 Farm Lane"`
}

func RegisterOrders(e *echo.Echo, auth *service.AuthService, orders *service.OrderService) {
	handler := &OrderHandler{orders: orders}

	group := e.Group("/api/v1/orders", RequireAuth(auth))
	group.POST("", handler.placeOrder)
	group.GET("", handler.listOrders)
}

func (h *OrderHandler) placeOrder(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	items := make([]service.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(strings.TrimSpace(item.ProductID))
		if err != nil {
			return c.JSON(http.StatusBadRequest, util.Error("item product_id must be a valid UUID"))
		}
		items = append(items, service.OrderItemInput{
			ProductID: productID,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.orders.PlaceOrder(c.Request().Context(), user.ID, service.PlaceOrderInput{
		Items:           items,
		PaymentMethod:   req.PaymentMethod,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		if errors.Is(err, service.ErrOrderInvalid) {
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("could not place order"))
	}

	return c.JSON(http.StatusCreated, util.Envelope{
		"message": "Order placed",
		"order":   order,
	})
}

func (h *OrderHandler) listOrders(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	orders, err := h.orders.ListOrders(c.Request().Context(), user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("unable to load orders"))
	}

	return c.JSON(http.StatusOK, util.Envelope{
		"orders": orders,
		"count":  len(orders),
	})
}
