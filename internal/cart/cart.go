package cart

import (
	"context"
	"encoding/json"
	"math"
	"sync"

	"go.uber.org/zap"

	"marketflow/internal/models"
	"marketflow/internal/storage"
	"marketflow/internal/util"
)

// DefaultKey is the slot key the cart is persisted under
const DefaultKey = "marketflow_cart"

// State is a snapshot of the cart
type State struct {
	Items  []models.CartItem `json:"items"`
	IsOpen bool              `json:"isOpen"`
}

// Store holds the shopping cart. Every transition runs under mu together with
// its slot write, so the slot always holds the latest items.
type Store struct {
	mu     sync.Mutex
	slot   storage.Slot
	logger *zap.Logger
	items  []models.CartItem
	isOpen bool
}

// New builds a cart store and hydrates it from slot. Missing or unreadable
// contents yield an empty cart.
func New(ctx context.Context, slot storage.Slot, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		slot:   slot,
		logger: logger,
		items:  []models.CartItem{},
	}
	s.items = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []models.CartItem {
	raw, ok, err := s.slot.Read(ctx)
	if err != nil {
		util.CartPersistFailuresTotal.WithLabelValues("read").Inc()
		s.logger.Warn("Failed to read cart, starting empty", zap.Error(err))
		return []models.CartItem{}
	}
	if !ok {
		return []models.CartItem{}
	}

	var stored []models.CartItem
	if err := json.Unmarshal(raw, &stored); err != nil {
		util.CartPersistFailuresTotal.WithLabelValues("decode").Inc()
		s.logger.Warn("Failed to decode cart, starting empty", zap.Error(err))
		return []models.CartItem{}
	}

	items := make([]models.CartItem, 0, len(stored))
	index := make(map[int64]int, len(stored))
	for _, item := range stored {
		if item.Quantity < 1 {
			continue
		}
		if i, seen := index[item.ProductID]; seen {
			items[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(items)
		items = append(items, item)
	}
	return items
}

// persist writes the items to the slot. Caller holds mu. The write ignores
// cancellation of ctx because the in-memory transition has already happened.
func (s *Store) persist(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	raw, err := json.Marshal(s.items)
	if err != nil {
		util.CartPersistFailuresTotal.WithLabelValues("encode").Inc()
		s.logger.Error("Failed to encode cart", zap.Error(err))
		return
	}
	if err := s.slot.Write(ctx, raw); err != nil {
		util.CartPersistFailuresTotal.WithLabelValues("write").Inc()
		s.logger.Warn("Failed to persist cart", zap.Error(err))
	}
}

func (s *Store) snapshot() State {
	items := make([]models.CartItem, len(s.items))
	copy(items, s.items)
	return State{Items: items, IsOpen: s.isOpen}
}

func (s *Store) find(productID int64) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddToCart adds quantity of product, merging with an existing line
func (s *Store) AddToCart(ctx context.Context, product models.Product, quantity int) State {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.find(product.ID); i >= 0 {
		s.items[i].Quantity += quantity
	} else {
		var image string
		if len(product.Images) > 0 {
			image = product.Images[0]
		}
		s.items = append(s.items, models.CartItem{
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Image:     image,
			Quantity:  quantity,
			SellerID:  product.SellerID,
		})
	}

	util.CartMutationsTotal.WithLabelValues("add").Inc()
	s.persist(ctx)
	return s.snapshot()
}

// RemoveFromCart drops the line for productID if present
func (s *Store) RemoveFromCart(ctx context.Context, productID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(productID)
	util.CartMutationsTotal.WithLabelValues("remove").Inc()
	s.persist(ctx)
	return s.snapshot()
}

func (s *Store) remove(productID int64) {
	if i := s.find(productID); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
}

// UpdateQuantity sets the quantity of a line. A non-positive quantity removes it.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, quantity int) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.remove(productID)
	} else if i := s.find(productID); i >= 0 {
		s.items[i].Quantity = quantity
	}

	util.CartMutationsTotal.WithLabelValues("update").Inc()
	s.persist(ctx)
	return s.snapshot()
}

// ClearCart empties the cart
func (s *Store) ClearCart(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []models.CartItem{}
	util.CartMutationsTotal.WithLabelValues("clear").Inc()
	s.persist(ctx)
	return s.snapshot()
}

// ToggleCart flips the open flag
func (s *Store) ToggleCart() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = !s.isOpen
	return s.snapshot()
}

func (s *Store) OpenCart() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = true
	return s.snapshot()
}

func (s *Store) CloseCart() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = false
	return s.snapshot()
}

// State returns a copy of the current cart
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Count is the sum of quantities
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// Subtotal is the sum of price x quantity, rounded to cents
func (s *Store) Subtotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, item := range s.items {
		total += item.Price * float64(item.Quantity)
	}
	return math.Round(total*100) / 100
}
