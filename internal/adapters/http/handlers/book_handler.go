package handlers

import (
	"errors"

	"biblio-reserve/internal/core/domain"
	"biblio-reserve/internal/core/services"
	"biblio-reserve/internal/pkg/pagination"
	"biblio-reserve/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// BookHandler handles book catalog endpoints
type BookHandler struct {
	bookService *services.BookService
}

// NewBookHandler creates a new book handler
func NewBookHandler(bookService *services.BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// Create handles book creation
// @Summary Create book
// @Description Add a new book to the catalog
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateBookInput true "Book data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /books [post]
func (h *BookHandler) Create(c *fiber.Ctx) error {
	var input services.CreateBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if input.Title == "" {
		return response.BadRequest(c, "Title is required")
	}
	if input.Author == "" {
		return response.BadRequest(c, "Author is required")
	}

	book, err := h.bookService.Create(c.Context(), &input)
	if err != nil {
		return response.InternalServerError(c, "Failed to create book")
	}

	return response.Created(c, "Book created successfully", book)
}

// Get handles getting a book by ID
// @Summary Get book
// @Description Get a book with its reservation history
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param include_inactive query bool false "Include soft-deleted records"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [get]
func (h *BookHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.bookService.Get(c.Context(), id, includeInactive(c, domain.PermUpdateBooks))
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to get book")
	}

	return response.Success(c, "Book retrieved successfully", book)
}

// List handles listing books
// @Summary List books
// @Description List books with pagination and filters
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param title query string false "Filter by title"
// @Param author query string false "Filter by author"
// @Param genre query string false "Filter by genre"
// @Param include_inactive query bool false "Include soft-deleted records"
// @Success 200 {object} response.Response
// @Router /books [get]
func (h *BookHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	input := &services.ListBooksInput{
		Page:            params.Page,
		Limit:           params.Limit,
		Title:           c.Query("title"),
		Author:          c.Query("author"),
		Genre:           c.Query("genre"),
		IncludeInactive: includeInactive(c, domain.PermUpdateBooks),
	}

	result, err := h.bookService.List(c.Context(), input)
	if err != nil {
		return response.InternalServerError(c, "Failed to list books")
	}

	return response.SuccessWithPagination(c, "Books retrieved successfully",
		result.Books, result.Page, result.Limit, result.Total)
}

// Update handles updating a book's catalog fields
// @Summary Update book
// @Description Update a book's catalog fields
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body services.UpdateBookInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [put]
func (h *BookHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	var input services.UpdateBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	book, err := h.bookService.Update(c.Context(), id, &input)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to update book")
	}

	return response.Success(c, "Book updated successfully", book)
}

// Delete handles soft-deleting a book
// @Summary Delete book
// @Description Soft-delete a book from the catalog
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	if err := h.bookService.SoftDelete(c.Context(), id); err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			return response.NotFound(c, "Book not found")
		}
		return response.InternalServerError(c, "Failed to delete book")
	}

	return response.Success(c, "Book deleted successfully", nil)
}
