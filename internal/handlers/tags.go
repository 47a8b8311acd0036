package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bookly-project/bookly/internal/apperr"
	"github.com/bookly-project/bookly/internal/logging"
	"github.com/bookly-project/bookly/internal/models"
)

type TagHandler struct {
	DB *gorm.DB
}

type tagRequest struct {
	Name string `json:"name"`
}

func (h *TagHandler) GetTags(c echo.Context) error {
	var tags []models.Tag
	if err := h.DB.Order("name ASC").Find(&tags).Error; err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, tags)
}

// AddTagToBook associates a tag with a book, creating the tag on first use.
func (h *TagHandler) AddTagToBook(c echo.Context) error {
	var req tagRequest
	if err := c.Bind(&req); err != nil {
		return apperr.ErrBadRequest
	}
	if req.Name == "" {
		return apperr.ErrBadRequest
	}

	var book models.Book
	err := h.DB.Where("uid = ?", c.Param("book_uid")).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrBookNotFound
	}
	if err != nil {
		return h.internal(c, err)
	}

	var tag models.Tag
	err = h.DB.Where("name = ?", req.Name).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tag = models.Tag{Name: req.Name}
		if err := h.DB.Create(&tag).Error; err != nil {
			return h.internal(c, err)
		}
	} else if err != nil {
		return h.internal(c, err)
	}

	if err := h.DB.Model(&book).Association("Tags").Append(&tag); err != nil {
		return h.internal(c, err)
	}

	return c.JSON(http.StatusOK, tag)
}

func (h *TagHandler) RemoveTagFromBook(c echo.Context) error {
	var book models.Book
	err := h.DB.Where("uid = ?", c.Param("book_uid")).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrBookNotFound
	}
	if err != nil {
		return h.internal(c, err)
	}

	var tag models.Tag
	err = h.DB.Where("uid = ?", c.Param("tag_uid")).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrTagNotFound
	}
	if err != nil {
		return h.internal(c, err)
	}

	if err := h.DB.Model(&book).Association("Tags").Delete(&tag); err != nil {
		return h.internal(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *TagHandler) internal(c echo.Context, err error) error {
	logging.FromContext(c.Request().Context()).Error("tag handler error", "error", err)
	return apperr.ErrInternal
}
