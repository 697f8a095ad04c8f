package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/foodgram-project/backend/internal/models"
)

// SubscriptionService manages follow edges between users.
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// AuthorFeed is the data behind the subscription projection: the followed
// author, a page of their recipes and the total recipe count.
type AuthorFeed struct {
	Author       models.User
	Recipes      []models.Recipe
	RecipesCount int64
}

// Subscribe creates the follow edge and returns the author's feed.
func (s *SubscriptionService) Subscribe(ctx context.Context, followerID, authorID uint, recipesLimit int) (*AuthorFeed, error) {
	if followerID == authorID {
		return nil, Validation("cannot follow yourself")
	}

	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.First(&author, authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var count int64
	if err := db.Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", followerID, authorID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, Conflict("already subscribed to this author")
	}

	edge := models.Subscription{UserID: followerID, AuthorID: authorID}
	if err := db.Create(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, Conflict("already subscribed to this author")
		}
		return nil, err
	}

	return s.feed(db, author, recipesLimit)
}

// Unsubscribe removes the follow edge; a missing edge is NotFound.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, followerID, authorID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", followerID, authorID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Subscriptions returns one page of the authors the follower follows, plus
// the total count for the pagination envelope.
func (s *SubscriptionService) Subscriptions(ctx context.Context, followerID uint, page, limit, recipesLimit int) ([]AuthorFeed, int64, error) {
	db := s.db.WithContext(ctx)

	followed := db.Model(&models.Subscription{}).
		Select("subscriptions.author_id").
		Where("subscriptions.user_id = ?", followerID)

	var total int64
	if err := db.Model(&models.User{}).Where("users.id IN (?)", followed).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	query := db.Model(&models.User{}).Where("users.id IN (?)", followed).Order("users.id")
	if limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}

	var authors []models.User
	if err := query.Find(&authors).Error; err != nil {
		return nil, 0, err
	}

	feeds := make([]AuthorFeed, 0, len(authors))
	for _, author := range authors {
		feed, err := s.feed(db, author, recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		feeds = append(feeds, *feed)
	}
	return feeds, total, nil
}

// IsSubscribed is the caller-relative existence check behind the
// is_subscribed projection flag.
func (s *SubscriptionService) IsSubscribed(ctx context.Context, followerID, authorID uint) (bool, error) {
	if followerID == 0 {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", followerID, authorID).
		Count(&count).Error
	return count > 0, err
}

func (s *SubscriptionService) feed(db *gorm.DB, author models.User, recipesLimit int) (*AuthorFeed, error) {
	var recipesCount int64
	if err := db.Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&recipesCount).Error; err != nil {
		return nil, err
	}

	query := db.Where("author_id = ?", author.ID).Order("created_at DESC, id DESC")
	if recipesLimit > 0 {
		query = query.Limit(recipesLimit)
	}
	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}

	return &AuthorFeed{Author: author, Recipes: recipes, RecipesCount: recipesCount}, nil
}
