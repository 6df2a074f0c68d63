package models

import "time"

// Product represents a product in the catalog
type Product struct {
	ID          int64     `json:"Id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Stock       int       `json:"stock"`
	Images      []string  `json:"images"`
	SellerID    string    `json:"sellerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Clone returns a copy that shares no memory with p
func (p Product) Clone() Product {
	p.Images = append([]string(nil), p.Images...)
	return p
}

// GetID returns the product id
func (p Product) GetID() int64 { return p.ID }

// WithID returns p carrying id
func (p Product) WithID(id int64) Product {
	p.ID = id
	return p
}

// Category is a node of the category tree. A nil ParentID marks a root.
type Category struct {
	ID       int64  `json:"Id"`
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	ParentID *int64 `json:"parentId"`
}

// Clone returns a copy that shares no memory with c
func (c Category) Clone() Category {
	if c.ParentID != nil {
		parent := *c.ParentID
		c.ParentID = &parent
	}
	return c
}

// GetID returns the category id
func (c Category) GetID() int64 { return c.ID }

// WithID returns c carrying id
func (c Category) WithID(id int64) Category {
	c.ID = id
	return c
}

// IsRoot reports whether c has no parent
func (c Category) IsRoot() bool { return c.ParentID == nil }

// OrderStatus is the fulfilment state of an order
type OrderStatus string

// Order statuses
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is one line of an order, priced at purchase time
type OrderItem struct {
	ProductID int64   `json:"productId" validate:"required"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
	Price     float64 `json:"price" validate:"gte=0"`
}

// ShippingAddress is where an order is delivered
type ShippingAddress struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
}

// PriceBreakdown records how an order total was made up at checkout
type PriceBreakdown struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
}

// Order represents a customer order
type Order struct {
	ID              int64           `json:"Id"`
	BuyerID         int64           `json:"buyerId,omitempty"`
	Items           []OrderItem     `json:"items"`
	Total           float64         `json:"total"`
	Breakdown       *PriceBreakdown `json:"breakdown,omitempty"`
	Status          OrderStatus     `json:"status"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	Reviewable      bool            `json:"reviewable"`
}

// Clone returns a copy that shares no memory with o
func (o Order) Clone() Order {
	o.Items = append([]OrderItem(nil), o.Items...)
	if o.Breakdown != nil {
		b := *o.Breakdown
		o.Breakdown = &b
	}
	return o
}

// GetID returns the order id
func (o Order) GetID() int64 { return o.ID }

// WithID returns o carrying id
func (o Order) WithID(id int64) Order {
	o.ID = id
	return o
}

// Review is a buyer's rating of a product
type Review struct {
	ID         int64     `json:"Id"`
	ProductID  int64     `json:"productId"`
	BuyerID    int64     `json:"buyerId"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	BuyerName  string    `json:"buyerName"`
	BuyerEmail string    `json:"buyerEmail"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Helpful    int       `json:"helpful"`
	Verified   bool      `json:"verified"`
}

// Clone returns a copy of r
func (r Review) Clone() Review { return r }

// GetID returns the review id
func (r Review) GetID() int64 { return r.ID }

// WithID returns r carrying id
func (r Review) WithID(id int64) Review {
	r.ID = id
	return r
}

// ProductStats aggregates the reviews of one product
type ProductStats struct {
	TotalReviews       int         `json:"totalReviews"`
	AverageRating      float64     `json:"averageRating"`
	RatingDistribution map[int]int `json:"ratingDistribution"`
}

// ProductRating is the short form of ProductStats
type ProductRating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// CartItem is a product snapshot held in the cart
type CartItem struct {
	ProductID int64   `json:"productId"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
	SellerID  string  `json:"sellerId"`
}
