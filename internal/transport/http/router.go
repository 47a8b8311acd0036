package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookly-project/bookly/internal/handlers"
	authmw "github.com/bookly-project/bookly/internal/middleware/auth"
	"github.com/bookly-project/bookly/internal/models"
	"github.com/bookly-project/bookly/internal/users"
)

type Deps struct {
	Guard         *authmw.TokenGuard
	Directory     *users.Directory
	AuthHandler   *handlers.AuthHandler
	BookHandler   *handlers.BookHandler
	ReviewHandler *handlers.ReviewHandler
	TagHandler    *handlers.TagHandler
	SearchHandler *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/verify/:token", d.AuthHandler.Verify)
	auth.GET("/refresh_token", d.AuthHandler.Refresh, d.Guard.RequireRefresh)
	auth.GET("/logout", d.AuthHandler.Logout, d.Guard.RequireAccess)
	auth.GET("/me", d.AuthHandler.Me,
		d.Guard.RequireAccess,
		authmw.LoadUser(d.Directory),
		authmw.RequireRoles(models.RoleAdmin, models.RoleUser),
	)

	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}

	// Every book/review route requires a verified account; ownership rules
	// inside the handlers decide who may mutate what.
	verified := v1.Group("",
		d.Guard.RequireAccess,
		authmw.LoadUser(d.Directory),
		authmw.RequireRoles(models.RoleAdmin, models.RoleUser),
	)

	verified.GET("/books", d.BookHandler.GetBooks)
	verified.GET("/books/:uid", d.BookHandler.GetBook)
	verified.POST("/books", d.BookHandler.CreateBook)
	verified.PATCH("/books/:uid", d.BookHandler.UpdateBook)
	verified.DELETE("/books/:uid", d.BookHandler.DeleteBook)

	verified.GET("/books/:book_uid/reviews", d.ReviewHandler.GetBookReviews)
	verified.POST("/books/:book_uid/reviews", d.ReviewHandler.AddReview)
	verified.DELETE("/reviews/:uid", d.ReviewHandler.DeleteReview)

	verified.GET("/tags", d.TagHandler.GetTags)

	admin := v1.Group("",
		d.Guard.RequireAccess,
		authmw.LoadUser(d.Directory),
		authmw.RequireRoles(models.RoleAdmin),
	)
	admin.POST("/books/:book_uid/tags", d.TagHandler.AddTagToBook)
	admin.DELETE("/books/:book_uid/tags/:tag_uid", d.TagHandler.RemoveTagFromBook)
}
