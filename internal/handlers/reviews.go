package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bookly-project/bookly/internal/apperr"
	"github.com/bookly-project/bookly/internal/logging"
	authmw "github.com/bookly-project/bookly/internal/middleware/auth"
	"github.com/bookly-project/bookly/internal/models"
	"github.com/bookly-project/bookly/internal/mykafka"
)

type ReviewHandler struct {
	DB       *gorm.DB
	Producer EventPublisher
}

type reviewRequest struct {
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
}

func (h *ReviewHandler) AddReview(c echo.Context) error {
	user := authmw.UserFrom(c)
	if user == nil {
		return apperr.ErrAccessTokenRequired
	}

	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ErrBadRequest
	}
	if req.Rating < 1 || req.Rating > 5 || req.ReviewText == "" {
		return apperr.ErrBadRequest
	}

	bookUID := c.Param("book_uid")
	var book models.Book
	err := h.DB.Where("uid = ?", bookUID).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrBookNotFound
	}
	if err != nil {
		return h.internal(c, err)
	}

	review := models.Review{
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
		UserUID:    user.UID,
		BookUID:    book.UID,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		return h.internal(c, err)
	}

	publish(c, h.Producer, mykafka.TopicReviewEvents, review.UID, map[string]interface{}{
		"type":       "review_added",
		"review_uid": review.UID,
		"book_uid":   book.UID,
		"user_uid":   user.UID,
		"rating":     review.Rating,
	})

	return c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) GetBookReviews(c echo.Context) error {
	bookUID := c.Param("book_uid")

	var book models.Book
	err := h.DB.Where("uid = ?", bookUID).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrBookNotFound
	}
	if err != nil {
		return h.internal(c, err)
	}

	var reviews []models.Review
	if err := h.DB.Where("book_uid = ?", bookUID).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return h.internal(c, err)
	}

	return c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	user := authmw.UserFrom(c)
	if user == nil {
		return apperr.ErrAccessTokenRequired
	}

	var review models.Review
	err := h.DB.Where("uid = ?", c.Param("uid")).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrReviewNotFound
	}
	if err != nil {
		return h.internal(c, err)
	}
	if !canMutate(user, review.UserUID) {
		return apperr.ErrInsufficientPermission
	}

	if err := h.DB.Delete(&review).Error; err != nil {
		return h.internal(c, err)
	}

	publish(c, h.Producer, mykafka.TopicReviewEvents, review.UID, map[string]interface{}{
		"type":       "review_deleted",
		"review_uid": review.UID,
		"user_uid":   user.UID,
	})

	return c.NoContent(http.StatusNoContent)
}

func (h *ReviewHandler) internal(c echo.Context, err error) error {
	logging.FromContext(c.Request().Context()).Error("review handler error", "error", err)
	return apperr.ErrInternal
}
