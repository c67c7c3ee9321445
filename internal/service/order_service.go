package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
	"github.com/freshvalley/dairy-shop-backend/internal/repository/ports"
)

var ErrOrderInvalid = errors.New("order validation failed")

type OrderItemInput struct {
	ProductID uuid.UUID
	Price     float64
	Quantity  int
}

type PlaceOrderInput struct {
	Items           []OrderItemInput
	PaymentMethod   string
	DeliveryAddress string
}

type OrderService struct {
	orders ports.OrderRepository
	now    func() time.Time
}

func NewOrderService(orders ports.OrderRepository) *OrderService {
	return &OrderService{orders: orders, now: time.Now}
}

// PlaceOrder writes the order and its items atomically. The total is the sum
// of the submitted price*quantity pairs, fixed at this moment: catalog price
// edits afterwards never change a placed order.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*domain.Order, error) {
	paymentMethod := strings.TrimSpace(input.PaymentMethod)
	deliveryAddress := strings.TrimSpace(input.DeliveryAddress)
	if len(input.Items) == 0 || paymentMethod == "" || deliveryAddress == "" {
		return nil, fmt.Errorf("%w: items, payment_method, and delivery_address are required", ErrOrderInvalid)
	}

	var total float64
	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: item product id is required", ErrOrderInvalid)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item quantity must be positive", ErrOrderInvalid)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("%w: item price cannot be negative", ErrOrderInvalid)
		}
		total += item.Price * float64(item.Quantity)
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	order := domain.Order{
		OrderNumber:     fmt.Sprintf("ORD%d", s.now().UnixMilli()),
		UserID:          userID,
		TotalAmount:     math.Round(total*100) / 100,
		PaymentMethod:   paymentMethod,
		DeliveryAddress: deliveryAddress,
		Status:          domain.OrderStatusPending,
	}

	created, err := s.orders.CreateWithItems(ctx, order, items)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return created, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]domain.OrderSummary, error) {
	return s.orders.ListByUser(ctx, userID)
}
