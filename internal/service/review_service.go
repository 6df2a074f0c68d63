package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"marketflow/internal/models"
	"marketflow/internal/store"
	"marketflow/internal/util"

	"go.uber.org/zap"
)

const (
	minCommentLength = 10
	anonymousBuyer   = "Anonymous Buyer"
)

// ReviewService is the mock review API over the review table
type ReviewService struct {
	reviews        *store.Table[models.Review]
	eventPublisher EventPublisher
	latency        Latency
	logger         *zap.Logger
}

// NewReviewService creates a new review service. eventPublisher may be nil.
func NewReviewService(s *store.Store, eventPublisher EventPublisher, latency Latency) *ReviewService {
	return &ReviewService{
		reviews:        s.Reviews,
		eventPublisher: eventPublisher,
		latency:        latency,
		logger:         util.GetLogger(),
	}
}

// ReviewInput is the payload for posting a review
type ReviewInput struct {
	ProductID  int64  `json:"productId"`
	BuyerID    int64  `json:"buyerId"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	BuyerName  string `json:"buyerName"`
	BuyerEmail string `json:"buyerEmail"`
}

// ReviewUpdate carries the fields to change. The product and buyer of a
// review never change.
type ReviewUpdate struct {
	Rating     *int    `json:"rating"`
	Comment    *string `json:"comment"`
	BuyerName  *string `json:"buyerName"`
	BuyerEmail *string `json:"buyerEmail"`
}

func checkRating(rating int) error {
	if rating < 1 || rating > 5 {
		return validationErrorf("Rating must be between 1 and 5")
	}
	return nil
}

func checkComment(comment string) (string, error) {
	trimmed := strings.TrimSpace(comment)
	if utf8.RuneCountInString(trimmed) < minCommentLength {
		return "", validationErrorf("Review comment must be at least %d characters long", minCommentLength)
	}
	return trimmed, nil
}

func newestFirst(reviews []models.Review) []models.Review {
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return reviews
}

func roundTenths(v float64) float64 {
	return math.Round(v*10) / 10
}

// GetAll returns every review
func (s *ReviewService) GetAll(ctx context.Context) (reviews []models.Review, err error) {
	ctx, c := startCall(ctx, "ReviewService", "GetAll")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 300*time.Millisecond); err != nil {
		return nil, err
	}
	return s.reviews.All(), nil
}

// GetByID returns one review
func (s *ReviewService) GetByID(ctx context.Context, id int64) (review models.Review, err error) {
	ctx, c := startCall(ctx, "ReviewService", "GetByID")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 200*time.Millisecond); err != nil {
		return models.Review{}, err
	}
	return s.reviews.Get(id)
}

// GetByProductID returns the reviews of a product, newest first
func (s *ReviewService) GetByProductID(ctx context.Context, productID int64) (reviews []models.Review, err error) {
	ctx, c := startCall(ctx, "ReviewService", "GetByProductID")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 250*time.Millisecond); err != nil {
		return nil, err
	}
	return newestFirst(s.reviews.Filter(func(r models.Review) bool { return r.ProductID == productID })), nil
}

// GetByBuyerID returns the reviews written by a buyer, newest first
func (s *ReviewService) GetByBuyerID(ctx context.Context, buyerID int64) (reviews []models.Review, err error) {
	ctx, c := startCall(ctx, "ReviewService", "GetByBuyerID")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 250*time.Millisecond); err != nil {
		return nil, err
	}
	return newestFirst(s.reviews.Filter(func(r models.Review) bool { return r.BuyerID == buyerID })), nil
}

// GetProductRating returns the mean rating, to one decimal, and review count
func (s *ReviewService) GetProductRating(ctx context.Context, productID int64) (rating models.ProductRating, err error) {
	ctx, c := startCall(ctx, "ReviewService", "GetProductRating")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 200*time.Millisecond); err != nil {
		return models.ProductRating{}, err
	}

	stats := productStats(s.reviews.Filter(func(r models.Review) bool { return r.ProductID == productID }))
	return models.ProductRating{Average: stats.AverageRating, Count: stats.TotalReviews}, nil
}

// Create validates and stores a review. A buyer may review a product once.
func (s *ReviewService) Create(ctx context.Context, in ReviewInput) (review models.Review, err error) {
	ctx, c := startCall(ctx, "ReviewService", "Create")
	defer func() {
		if err != nil {
			util.ReviewsRejectedTotal.WithLabelValues(errorResult(err)).Inc()
		}
		c.end(err)
	}()

	if err = s.latency.Wait(ctx, 500*time.Millisecond); err != nil {
		return models.Review{}, err
	}

	if in.ProductID == 0 || in.BuyerID == 0 {
		return models.Review{}, validationErrorf("Product ID and Buyer ID are required")
	}
	if err = checkRating(in.Rating); err != nil {
		return models.Review{}, err
	}
	comment, err := checkComment(in.Comment)
	if err != nil {
		return models.Review{}, err
	}

	name := strings.TrimSpace(in.BuyerName)
	if name == "" {
		name = anonymousBuyer
	}
	now := time.Now().UTC()

	review, err = s.reviews.Insert(models.Review{
		ProductID:  in.ProductID,
		BuyerID:    in.BuyerID,
		Rating:     in.Rating,
		Comment:    comment,
		BuyerName:  name,
		BuyerEmail: strings.TrimSpace(in.BuyerEmail),
		CreatedAt:  now,
		UpdatedAt:  now,
		Helpful:    0,
		Verified:   true,
	}, func(existing []models.Review) error {
		for _, r := range existing {
			if r.ProductID == in.ProductID && r.BuyerID == in.BuyerID {
				return conflictErrorf("You have already reviewed this product")
			}
		}
		return nil
	})
	if err != nil {
		return models.Review{}, err
	}

	util.ReviewsCreatedTotal.Inc()
	s.logger.Info("Review created",
		zap.Int64("review_id", review.ID),
		zap.Int64("product_id", review.ProductID),
		zap.Int("rating", review.Rating))

	if s.eventPublisher != nil {
		event := &models.ReviewCreatedEvent{
			BaseEvent: newBaseEvent(models.EventTypeReviewCreated),
			ReviewID:  review.ID,
			ProductID: review.ProductID,
			BuyerID:   review.BuyerID,
			Rating:    review.Rating,
		}
		if err := s.eventPublisher.PublishReviewCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish ReviewCreated event", zap.Error(err))
		}
	}

	return review, nil
}

// Update applies u under the same rating and comment rules as Create and
// stamps updatedAt.
func (s *ReviewService) Update(ctx context.Context, id int64, u ReviewUpdate) (review models.Review, err error) {
	ctx, c := startCall(ctx, "ReviewService", "Update")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 400*time.Millisecond); err != nil {
		return models.Review{}, err
	}

	return s.reviews.Update(id, func(cur models.Review, _ []models.Review) (models.Review, error) {
		if u.Rating != nil {
			if err := checkRating(*u.Rating); err != nil {
				return cur, err
			}
			cur.Rating = *u.Rating
		}
		if u.Comment != nil {
			comment, err := checkComment(*u.Comment)
			if err != nil {
				return cur, err
			}
			cur.Comment = comment
		}
		if u.BuyerName != nil {
			cur.BuyerName = strings.TrimSpace(*u.BuyerName)
		}
		if u.BuyerEmail != nil {
			cur.BuyerEmail = strings.TrimSpace(*u.BuyerEmail)
		}
		cur.UpdatedAt = time.Now().UTC()
		return cur, nil
	})
}

// Delete removes a review and returns it
func (s *ReviewService) Delete(ctx context.Context, id int64) (review models.Review, err error) {
	ctx, c := startCall(ctx, "ReviewService", "Delete")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 300*time.Millisecond); err != nil {
		return models.Review{}, err
	}
	return s.reviews.Delete(id, nil)
}

// MarkHelpful increments the helpful counter by one
func (s *ReviewService) MarkHelpful(ctx context.Context, id int64) (review models.Review, err error) {
	ctx, c := startCall(ctx, "ReviewService", "MarkHelpful")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 250*time.Millisecond); err != nil {
		return models.Review{}, err
	}

	return s.reviews.Update(id, func(cur models.Review, _ []models.Review) (models.Review, error) {
		cur.Helpful++
		return cur, nil
	})
}

// CanReview reports whether buyerID has not yet reviewed productID
func (s *ReviewService) CanReview(ctx context.Context, productID, buyerID int64) (ok bool, err error) {
	ctx, c := startCall(ctx, "ReviewService", "CanReview")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 200*time.Millisecond); err != nil {
		return false, err
	}

	existing := s.reviews.Filter(func(r models.Review) bool {
		return r.ProductID == productID && r.BuyerID == buyerID
	})
	return len(existing) == 0, nil
}

// GetProductStats returns the review count, mean rating and per-star
// histogram of a product.
func (s *ReviewService) GetProductStats(ctx context.Context, productID int64) (stats models.ProductStats, err error) {
	ctx, c := startCall(ctx, "ReviewService", "GetProductStats")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 250*time.Millisecond); err != nil {
		return models.ProductStats{}, err
	}
	return productStats(s.reviews.Filter(func(r models.Review) bool { return r.ProductID == productID })), nil
}

func productStats(reviews []models.Review) models.ProductStats {
	stats := models.ProductStats{
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	if len(reviews) == 0 {
		return stats
	}

	total := 0
	for _, r := range reviews {
		stats.RatingDistribution[r.Rating]++
		total += r.Rating
	}

	stats.TotalReviews = len(reviews)
	stats.AverageRating = roundTenths(float64(total) / float64(len(reviews)))
	return stats
}
