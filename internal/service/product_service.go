package service

import (
	"context"
	"strings"
	"time"

	"marketflow/internal/models"
	"marketflow/internal/store"
	"marketflow/internal/util"

	"go.uber.org/zap"
)

// ProductService is the mock product API over the product table
type ProductService struct {
	products *store.Table[models.Product]
	latency  Latency
	logger   *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(s *store.Store, latency Latency) *ProductService {
	return &ProductService{
		products: s.Products,
		latency:  latency,
		logger:   util.GetLogger(),
	}
}

// ProductInput is the payload for creating a product
type ProductInput struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Price       float64  `json:"price" validate:"gte=0"`
	Category    string   `json:"category" validate:"required"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Images      []string `json:"images" validate:"min=1,dive,required"`
	SellerID    string   `json:"sellerId" validate:"required"`
}

// ProductUpdate carries the fields to change; nil fields are left alone
type ProductUpdate struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Category    *string   `json:"category"`
	Stock       *int      `json:"stock"`
	Images      *[]string `json:"images"`
	SellerID    *string   `json:"sellerId"`
}

func (in ProductInput) normalized() ProductInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.SellerID = strings.TrimSpace(in.SellerID)
	return in
}

func inputOf(p models.Product) ProductInput {
	return ProductInput{
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Stock:       p.Stock,
		Images:      p.Images,
		SellerID:    p.SellerID,
	}
}

func (u ProductUpdate) applyTo(p models.Product) models.Product {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Images != nil {
		p.Images = append([]string(nil), (*u.Images)...)
	}
	if u.SellerID != nil {
		p.SellerID = *u.SellerID
	}
	return p
}

// GetAll returns every product
func (s *ProductService) GetAll(ctx context.Context) (products []models.Product, err error) {
	ctx, c := startCall(ctx, "ProductService", "GetAll")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 300*time.Millisecond); err != nil {
		return nil, err
	}
	return s.products.All(), nil
}

// GetByID returns one product
func (s *ProductService) GetByID(ctx context.Context, id int64) (product models.Product, err error) {
	ctx, c := startCall(ctx, "ProductService", "GetByID")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 200*time.Millisecond); err != nil {
		return models.Product{}, err
	}
	return s.products.Get(id)
}

// Create validates in and stores a new product stamped with the current time
func (s *ProductService) Create(ctx context.Context, in ProductInput) (product models.Product, err error) {
	ctx, c := startCall(ctx, "ProductService", "Create")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 500*time.Millisecond); err != nil {
		return models.Product{}, err
	}

	in = in.normalized()
	if err = validateStruct(in); err != nil {
		return models.Product{}, err
	}

	product, err = s.products.Insert(models.Product{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Stock:       in.Stock,
		Images:      in.Images,
		SellerID:    in.SellerID,
		CreatedAt:   time.Now().UTC(),
	}, nil)
	if err != nil {
		return models.Product{}, err
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("seller_id", product.SellerID))
	return product, nil
}

// Update merges the non-nil fields of u onto the product
func (s *ProductService) Update(ctx context.Context, id int64, u ProductUpdate) (product models.Product, err error) {
	ctx, c := startCall(ctx, "ProductService", "Update")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 400*time.Millisecond); err != nil {
		return models.Product{}, err
	}

	return s.products.Update(id, func(cur models.Product, _ []models.Product) (models.Product, error) {
		next := u.applyTo(cur)
		in := inputOf(next).normalized()
		if err := validateStruct(in); err != nil {
			return cur, err
		}
		next.Title, next.Description, next.Category, next.SellerID = in.Title, in.Description, in.Category, in.SellerID
		return next, nil
	})
}

// Delete removes a product and returns it
func (s *ProductService) Delete(ctx context.Context, id int64) (product models.Product, err error) {
	ctx, c := startCall(ctx, "ProductService", "Delete")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 300*time.Millisecond); err != nil {
		return models.Product{}, err
	}

	product, err = s.products.Delete(id, nil)
	if err != nil {
		return models.Product{}, err
	}
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return product, nil
}

// GetByCategory returns the products whose category name equals category
func (s *ProductService) GetByCategory(ctx context.Context, category string) (products []models.Product, err error) {
	ctx, c := startCall(ctx, "ProductService", "GetByCategory")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 250*time.Millisecond); err != nil {
		return nil, err
	}
	return s.products.Filter(func(p models.Product) bool { return p.Category == category }), nil
}

// GetBySeller returns the products listed by sellerID
func (s *ProductService) GetBySeller(ctx context.Context, sellerID string) (products []models.Product, err error) {
	ctx, c := startCall(ctx, "ProductService", "GetBySeller")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 250*time.Millisecond); err != nil {
		return nil, err
	}
	return s.products.Filter(func(p models.Product) bool { return p.SellerID == sellerID }), nil
}

// Search matches query case-insensitively against title, description and
// category.
func (s *ProductService) Search(ctx context.Context, query string) (products []models.Product, err error) {
	ctx, c := startCall(ctx, "ProductService", "Search")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 300*time.Millisecond); err != nil {
		return nil, err
	}

	term := strings.ToLower(query)
	return s.products.Filter(func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Description), term) ||
			strings.Contains(strings.ToLower(p.Category), term)
	}), nil
}

// StockChange is one line of a stock adjustment
type StockChange struct {
	ProductID int64
	Delta     int
}

// AdjustStock adds every delta to its product stock, clamping at zero. All
// lines are applied together once the simulated latency has passed, so a
// failed call has changed nothing. Ids that no longer exist are returned in
// missing.
func (s *ProductService) AdjustStock(ctx context.Context, changes []StockChange) (missing []int64, err error) {
	ctx, c := startCall(ctx, "ProductService", "AdjustStock")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 200*time.Millisecond); err != nil {
		return nil, err
	}

	for _, change := range changes {
		_, err := s.products.Update(change.ProductID, func(cur models.Product, _ []models.Product) (models.Product, error) {
			cur.Stock += change.Delta
			if cur.Stock < 0 {
				s.logger.Warn("Stock adjustment clamped at zero",
					zap.Int64("product_id", change.ProductID),
					zap.Int("delta", change.Delta))
				cur.Stock = 0
			}
			return cur, nil
		})
		if err != nil {
			missing = append(missing, change.ProductID)
		}
	}
	return missing, nil
}
