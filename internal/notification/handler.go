package notification

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/example/refurnish/internal/checkout"
	"github.com/example/refurnish/internal/email"
)

// Handler turns order events from the orders topic into confirmation
// emails.
type Handler struct {
	emailService *email.Service
	logger       *slog.Logger
}

func NewHandler(emailSvc *email.Service, logger *slog.Logger) *Handler {
	return &Handler{
		emailService: emailSvc,
		logger:       logger,
	}
}

// HandleEvent processes one message from the orders topic.
func (h *Handler) HandleEvent(_ context.Context, _, value []byte) error {
	var event checkout.OrderPlaced
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Error("failed to unmarshal order event", "error", err)
		return err
	}
	if event.OrderID == "" {
		// Not an order event; the topic may carry other message kinds.
		return nil
	}
	if event.Email == "" {
		h.logger.Warn("order event has no recipient email", "order_id", event.OrderID)
		return nil
	}

	items := make([]email.OrderItem, len(event.Items))
	for i, item := range event.Items {
		items[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
		}
	}

	if err := h.emailService.SendOrderConfirmation(event.Email, event.OrderID, event.Total, items); err != nil {
		h.logger.Error("failed to send confirmation email",
			"error", err, "order_id", event.OrderID, "to", event.Email)
		return err
	}

	h.logger.Info("order confirmation email sent", "order_id", event.OrderID, "to", event.Email)
	return nil
}
