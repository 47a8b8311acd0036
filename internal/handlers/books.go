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
	"github.com/bookly-project/bookly/internal/util"
)

type BookHandler struct {
	DB       *gorm.DB
	Producer EventPublisher
}

type bookRequest struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Publisher     string `json:"publisher"`
	PublishedDate string `json:"published_date"`
	PageCount     int    `json:"page_count"`
	Language      string `json:"language"`
}

func (h *BookHandler) GetBooks(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Book{}).Count(&total).Error; err != nil {
		return h.internal(c, err)
	}

	var items []models.Book
	err := h.DB.Preload("Tags").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		return h.internal(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": echo.Map{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *BookHandler) GetBook(c echo.Context) error {
	var book models.Book
	err := h.DB.Preload("Tags").Where("uid = ?", c.Param("uid")).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrBookNotFound
	}
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *BookHandler) CreateBook(c echo.Context) error {
	user := authmw.UserFrom(c)
	if user == nil {
		return apperr.ErrAccessTokenRequired
	}

	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ErrBadRequest
	}
	if req.Title == "" || req.Author == "" {
		return apperr.ErrBadRequest
	}

	book := models.Book{
		Title:         req.Title,
		Author:        req.Author,
		Publisher:     req.Publisher,
		PublishedDate: req.PublishedDate,
		PageCount:     req.PageCount,
		Language:      req.Language,
		UserUID:       user.UID,
	}
	if err := h.DB.Create(&book).Error; err != nil {
		return h.internal(c, err)
	}

	publish(c, h.Producer, mykafka.TopicBookEvents, book.UID, map[string]interface{}{
		"type":     "book_created",
		"book_uid": book.UID,
		"user_uid": user.UID,
		"title":    book.Title,
	})

	return c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) UpdateBook(c echo.Context) error {
	user := authmw.UserFrom(c)
	if user == nil {
		return apperr.ErrAccessTokenRequired
	}

	var book models.Book
	err := h.DB.Where("uid = ?", c.Param("uid")).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrBookNotFound
	}
	if err != nil {
		return h.internal(c, err)
	}
	if !canMutate(user, book.UserUID) {
		return apperr.ErrInsufficientPermission
	}

	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ErrBadRequest
	}

	book.Title = req.Title
	book.Author = req.Author
	book.Publisher = req.Publisher
	book.PublishedDate = req.PublishedDate
	book.PageCount = req.PageCount
	book.Language = req.Language
	if err := h.DB.Save(&book).Error; err != nil {
		return h.internal(c, err)
	}

	publish(c, h.Producer, mykafka.TopicBookEvents, book.UID, map[string]interface{}{
		"type":     "book_updated",
		"book_uid": book.UID,
		"user_uid": user.UID,
	})

	return c.JSON(http.StatusOK, book)
}

func (h *BookHandler) DeleteBook(c echo.Context) error {
	user := authmw.UserFrom(c)
	if user == nil {
		return apperr.ErrAccessTokenRequired
	}

	var book models.Book
	err := h.DB.Where("uid = ?", c.Param("uid")).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrBookNotFound
	}
	if err != nil {
		return h.internal(c, err)
	}
	if !canMutate(user, book.UserUID) {
		return apperr.ErrInsufficientPermission
	}

	if err := h.DB.Delete(&book).Error; err != nil {
		return h.internal(c, err)
	}

	publish(c, h.Producer, mykafka.TopicBookEvents, book.UID, map[string]interface{}{
		"type":     "book_deleted",
		"book_uid": book.UID,
		"user_uid": user.UID,
	})

	return c.NoContent(http.StatusNoContent)
}

func (h *BookHandler) internal(c echo.Context, err error) error {
	logging.FromContext(c.Request().Context()).Error("book handler error", "error", err)
	return apperr.ErrInternal
}

// canMutate: admins may touch any record, everyone else only their own.
func canMutate(user *models.User, ownerUID string) bool {
	return user.Role == models.RoleAdmin || user.UID == ownerUID
}
