package seller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/refurnish/internal/auth"
	"github.com/example/refurnish/internal/push"
)

// RefreshInterval is the mirror's consistency backstop against missed
// push events.
const RefreshInterval = 30 * time.Second

// ToastDuration is how long a push-driven notice stays visible.
const ToastDuration = 5 * time.Second

// ProductService is the product backend collaborator. ListAll returns the
// whole collection; the dashboard filters it down to the seller's own
// listings.
type ProductService interface {
	ListAll(ctx context.Context, token string) ([]Product, error)
	Create(ctx context.Context, token string, p Product) (Product, error)
	Update(ctx context.Context, token string, p Product) (Product, error)
}

// Uploader pushes listing photos to the image host and returns their
// public URLs.
type Uploader interface {
	Upload(ctx context.Context, token string, img ImageUpload) (string, error)
}

// Toast is a transient notice raised by a push event.
type Toast struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Dashboard mirrors the seller's own listings, patches them live from
// push events, and refreshes the whole mirror on a fixed interval in case
// an event was missed. Close tears the subscription and the refresh loop
// down; a disposed dashboard must never hear another event.
type Dashboard struct {
	products        ProductService
	uploader        Uploader
	subscriber      push.Subscriber
	logger          *slog.Logger
	refreshInterval time.Duration
	now             func() time.Time

	mu          sync.Mutex
	sess        auth.Session
	mirror      []Product
	toasts      []Toast
	unsubscribe func()
	done        chan struct{}
	opened      bool
}

func NewDashboard(products ProductService, uploader Uploader, subscriber push.Subscriber, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		products:        products,
		uploader:        uploader,
		subscriber:      subscriber,
		logger:          logger,
		refreshInterval: RefreshInterval,
		now:             time.Now,
	}
}

// Open loads the seller's mirror, subscribes to push events for the
// seller, and starts the periodic refresh. One Open per Dashboard.
func (d *Dashboard) Open(ctx context.Context, sess auth.Session) error {
	if sess.UserID == "" || sess.Token == "" {
		return ErrNotAuthenticated
	}

	d.mu.Lock()
	if d.opened {
		d.mu.Unlock()
		return fmt.Errorf("dashboard already open for user %s", d.sess.UserID)
	}
	d.opened = true
	d.sess = sess
	d.done = make(chan struct{})
	d.mu.Unlock()

	if err := d.Refresh(ctx); err != nil {
		return err
	}

	unsubscribe, err := d.subscriber.Subscribe(sess.UserID, d.handleEvent)
	if err != nil {
		return fmt.Errorf("failed to subscribe to push events: %w", err)
	}
	d.mu.Lock()
	d.unsubscribe = unsubscribe
	d.mu.Unlock()

	go d.refreshLoop(ctx)
	return nil
}

// Close tears down the push subscription and the refresh loop.
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return
	}
	d.opened = false
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
	close(d.done)
}

// Refresh replaces the mirror with a fresh owner-filtered fetch.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.mu.Lock()
	sess := d.sess
	d.mu.Unlock()

	all, err := d.products.ListAll(ctx, sess.Token)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	var mine []Product
	for _, p := range all {
		if p.SellerID == sess.UserID {
			mine = append(mine, p)
		}
	}

	d.mu.Lock()
	d.mirror = mine
	d.mu.Unlock()
	return nil
}

// Products returns a snapshot of the seller's listings.
func (d *Dashboard) Products() []Product {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Product, len(d.mirror))
	copy(out, d.mirror)
	return out
}

// Stats aggregates the current mirror.
func (d *Dashboard) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return statsFor(d.mirror)
}

// Toasts returns the not-yet-expired notices.
func (d *Dashboard) Toasts() []Toast {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	live := d.toasts[:0]
	for _, t := range d.toasts {
		if t.ExpiresAt.After(now) {
			live = append(live, t)
		}
	}
	d.toasts = live
	out := make([]Toast, len(live))
	copy(out, live)
	return out
}

// CreateListing uploads the draft's images and submits the new product.
// Any upload failure aborts the whole create; no half-referenced listing
// is ever submitted.
func (d *Dashboard) CreateListing(ctx context.Context, draft ListingDraft) (Product, error) {
	if err := draft.validate(); err != nil {
		return Product{}, err
	}

	d.mu.Lock()
	sess := d.sess
	d.mu.Unlock()

	urls, err := d.uploadImages(ctx, sess.Token, draft)
	if err != nil {
		return Product{}, err
	}

	created, err := d.products.Create(ctx, sess.Token, Product{
		SellerID:    sess.UserID,
		Name:        draft.Name,
		Description: draft.Description,
		Price:       draft.Price,
		Category:    draft.Category,
		Status:      StatusPending,
		ImageURLs:   urls,
	})
	if err != nil {
		return Product{}, fmt.Errorf("failed to create product: %w", err)
	}

	d.mu.Lock()
	d.mirror = append(d.mirror, created)
	d.mu.Unlock()
	return created, nil
}

// UpdateListing applies the draft to an existing listing. When change
// detection finds no difference against the mirror, the whole call is
// skipped with no network traffic and changed is false.
func (d *Dashboard) UpdateListing(ctx context.Context, productID string, draft ListingDraft) (p Product, changed bool, err error) {
	if err := draft.validate(); err != nil {
		return Product{}, false, err
	}

	d.mu.Lock()
	sess := d.sess
	original, idx := d.findLocked(productID)
	d.mu.Unlock()
	if idx < 0 {
		return Product{}, false, ErrProductNotFound
	}
	if sameListing(original, draft) {
		return original, false, nil
	}

	urls, err := d.uploadImages(ctx, sess.Token, draft)
	if err != nil {
		return Product{}, false, err
	}

	next := original
	next.Name = draft.Name
	next.Description = draft.Description
	next.Price = draft.Price
	next.Category = draft.Category
	next.ImageURLs = urls

	updated, err := d.products.Update(ctx, sess.Token, next)
	if err != nil {
		return Product{}, false, fmt.Errorf("failed to update product: %w", err)
	}

	d.mu.Lock()
	if _, i := d.findLocked(productID); i >= 0 {
		d.mirror[i] = updated
	}
	d.mu.Unlock()
	return updated, true, nil
}

func (d *Dashboard) uploadImages(ctx context.Context, token string, draft ListingDraft) ([]string, error) {
	urls := append([]string(nil), draft.KeepImageURLs...)
	for _, img := range draft.Images {
		url, err := d.uploader.Upload(ctx, token, img)
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", img.Filename, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// handleEvent patches the matching listing's status in place and raises a
// toast. Unknown products are left to the periodic refresh.
func (d *Dashboard) handleEvent(event push.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch event.Type {
	case push.EventProductStatusUpdate:
		if _, i := d.findLocked(event.ProductID); i >= 0 {
			d.mirror[i].Status = ProductStatus(event.Status)
		} else {
			d.logger.Warn("status update for unknown product", "product_id", event.ProductID)
		}
	case push.EventProductSoldUpdate:
		if _, i := d.findLocked(event.ProductID); i >= 0 {
			d.mirror[i].Status = StatusSold
		} else {
			d.logger.Warn("sold update for unknown product", "product_id", event.ProductID)
		}
	default:
		return
	}

	message := event.Message
	if message == "" && event.ProductName != "" {
		message = fmt.Sprintf("%s was sold", event.ProductName)
	}
	if message != "" {
		d.toasts = append(d.toasts, Toast{
			Message:   message,
			ExpiresAt: d.now().Add(ToastDuration),
		})
	}
}

func (d *Dashboard) findLocked(productID string) (Product, int) {
	for i, p := range d.mirror {
		if p.ID == productID {
			return p, i
		}
	}
	return Product{}, -1
}

func (d *Dashboard) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(d.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case <-ticker.C:
			if err := d.Refresh(ctx); err != nil {
				d.logger.Warn("periodic product refresh failed", "error", err)
			}
		}
	}
}
