package service

import (
	"context"
	"sync"
	"time"

	"marketflow/internal/models"
	"marketflow/internal/store"
)

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func testAddress() models.ShippingAddress {
	return models.ShippingAddress{
		Name:    "Ada Buyer",
		Email:   "ada@example.com",
		Address: "1 Main St",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62701",
	}
}

func testSeed() store.Seed {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return store.Seed{
		Products: []models.Product{
			{ID: 1, Title: "Wireless Headphones", Description: "Noise cancelling", Price: 199.99, Category: "Audio", Stock: 5, Images: []string{"h.jpg"}, SellerID: "seller-1", CreatedAt: created},
			{ID: 2, Title: "Keyboard", Description: "Mechanical switches", Price: 89.5, Category: "Computer Accessories", Stock: 10, Images: []string{"k.jpg"}, SellerID: "seller-1", CreatedAt: created},
			{ID: 3, Title: "Pour-Over Set", Description: "Ceramic dripper for AUDIOphile baristas", Price: 42, Category: "Kitchen", Stock: 2, Images: []string{"p.jpg"}, SellerID: "seller-2", CreatedAt: created},
		},
		Categories: []models.Category{
			{ID: 1, Name: "Electronics", Slug: "electronics"},
			{ID: 2, Name: "Audio", Slug: "audio", ParentID: int64Ptr(1)},
			{ID: 3, Name: "Headphones", Slug: "headphones", ParentID: int64Ptr(2)},
			{ID: 4, Name: "Home", Slug: "home"},
			{ID: 5, Name: "Computers", Slug: "computers", ParentID: int64Ptr(1)},
		},
		Orders: []models.Order{
			{ID: 1, BuyerID: 7, Items: []models.OrderItem{{ProductID: 1, Quantity: 1, Price: 199.99}}, Total: 215.99, Status: models.OrderStatusShipped, ShippingAddress: testAddress(), CreatedAt: created},
			{ID: 2, BuyerID: 8, Items: []models.OrderItem{{ProductID: 3, Quantity: 2, Price: 42}}, Total: 100.71, Status: models.OrderStatusPending, ShippingAddress: testAddress(), CreatedAt: created},
		},
		Reviews: []models.Review{
			{ID: 1, ProductID: 5, BuyerID: 7, Rating: 5, Comment: "Excellent sound quality", BuyerName: "Ada", CreatedAt: created, UpdatedAt: created, Verified: true},
			{ID: 2, ProductID: 5, BuyerID: 8, Rating: 3, Comment: "Decent for the price", BuyerName: "Bob", CreatedAt: created.Add(48 * time.Hour), UpdatedAt: created, Verified: true},
			{ID: 3, ProductID: 2, BuyerID: 7, Rating: 4, Comment: "Nice tactile switches", BuyerName: "Ada", CreatedAt: created.Add(24 * time.Hour), UpdatedAt: created, Verified: true},
		},
	}
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu            sync.Mutex
	orderCreated  []*models.OrderCreatedEvent
	statusChanged []*models.OrderStatusChangedEvent
	reviewCreated []*models.ReviewCreatedEvent
	err           error
}

func (p *recordingPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orderCreated = append(p.orderCreated, event)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusChanged = append(p.statusChanged, event)
	return p.err
}

func (p *recordingPublisher) PublishReviewCreated(ctx context.Context, event *models.ReviewCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reviewCreated = append(p.reviewCreated, event)
	return p.err
}
