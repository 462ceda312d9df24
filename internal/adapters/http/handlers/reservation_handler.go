package handlers

import (
	"errors"
	"strconv"

	"biblio-reserve/internal/adapters/http/middleware"
	"biblio-reserve/internal/core/domain"
	"biblio-reserve/internal/core/services"
	"biblio-reserve/internal/pkg/pagination"
	"biblio-reserve/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ReservationHandler handles reservation endpoints
type ReservationHandler struct {
	reservationService *services.ReservationService
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservationService *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// Create handles reservation creation
// @Summary Create reservation
// @Description Loan an available book to a user
// @Tags Reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateReservationInput true "Reservation data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /reservations [post]
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var input services.CreateReservationInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if input.BookID == 0 {
		return response.BadRequest(c, "Book ID is required")
	}

	// Default to self-reservation; creating for someone else needs the permission
	if input.UserID == 0 {
		input.UserID = middleware.CallerID(c)
	}
	if !middleware.CanAct(c, domain.ActionCreateReservations, input.UserID) {
		return response.Forbidden(c, "You don't have permission to create this reservation")
	}

	reservation, err := h.reservationService.Create(c.Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPreconditionFailed):
			return response.UnprocessableEntity(c, err.Error())
		case errors.Is(err, domain.ErrIntegrityFault):
			return response.InternalServerError(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to create reservation")
		}
	}

	return response.Created(c, "Reservation created successfully", reservation.ToResponse())
}

// Get handles getting a reservation by ID
// @Summary Get reservation
// @Description Get a reservation by ID
// @Tags Reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Param include_inactive query bool false "Include soft-deleted records"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /reservations/{id} [get]
func (h *ReservationHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid reservation ID")
	}

	reservation, err := h.reservationService.Get(c.Context(), id, includeInactive(c, domain.PermReadReservations))
	if err != nil {
		if errors.Is(err, services.ErrReservationNotFound) {
			return response.NotFound(c, "Reservation not found")
		}
		return response.InternalServerError(c, "Failed to get reservation")
	}

	if !middleware.CanAct(c, domain.ActionReadReservations, reservation.UserID) {
		return response.Forbidden(c, "You don't have permission to view this reservation")
	}

	return response.Success(c, "Reservation retrieved successfully", reservation.ToResponse())
}

// List handles listing reservations
// @Summary List reservations
// @Description List reservations with pagination and filters
// @Tags Reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param user_id query int false "Filter by user"
// @Param book_id query int false "Filter by book"
// @Param open query bool false "Filter by open loans"
// @Param include_inactive query bool false "Include soft-deleted records"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /reservations [get]
func (h *ReservationHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	input := &services.ListReservationsInput{
		Page:            params.Page,
		Limit:           params.Limit,
		IncludeInactive: includeInactive(c, domain.PermReadReservations),
	}

	if v := c.QueryInt("user_id", 0); v > 0 {
		userID := uint(v)
		input.UserID = &userID
	}
	if v := c.QueryInt("book_id", 0); v > 0 {
		bookID := uint(v)
		input.BookID = &bookID
	}
	if v := c.Query("open"); v != "" {
		open := v == "true" || v == "1"
		input.Open = &open
	}

	// Without the read permission a caller only sees their own reservations
	if !middleware.CanAct(c, domain.ActionReadReservations, 0) {
		callerID := middleware.CallerID(c)
		input.UserID = &callerID
	}

	result, err := h.reservationService.List(c.Context(), input)
	if err != nil {
		return response.InternalServerError(c, "Failed to list reservations")
	}

	return response.SuccessWithPagination(c, "Reservations retrieved successfully",
		result.Reservations, result.Page, result.Limit, result.Total)
}

// Update handles patching a reservation's denormalized fields
// @Summary Update reservation
// @Description Update a reservation's display fields
// @Tags Reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Param include_inactive query bool false "Include soft-deleted records"
// @Param body body services.UpdateReservationInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /reservations/{id} [put]
func (h *ReservationHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid reservation ID")
	}

	var input services.UpdateReservationInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	withInactive := includeInactive(c, domain.PermReadReservations)
	existing, err := h.reservationService.Get(c.Context(), id, withInactive)
	if err != nil {
		if errors.Is(err, services.ErrReservationNotFound) {
			return response.NotFound(c, "Reservation not found")
		}
		return response.InternalServerError(c, "Failed to get reservation")
	}

	if !middleware.CanAct(c, domain.ActionUpdateReservations, existing.UserID) {
		return response.Forbidden(c, "You don't have permission to update this reservation")
	}

	reservation, err := h.reservationService.Update(c.Context(), id, &input, withInactive)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReservationNotFound):
			return response.NotFound(c, "Reservation not found")
		case errors.Is(err, domain.ErrIntegrityFault):
			return response.InternalServerError(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to update reservation")
		}
	}

	return response.Success(c, "Reservation updated successfully", reservation.ToResponse())
}

// Return handles returning a loaned book
// @Summary Return reservation
// @Description Close a reservation and release the book
// @Tags Reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Param include_inactive query bool false "Include soft-deleted records"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /reservations/{id}/return [put]
func (h *ReservationHandler) Return(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid reservation ID")
	}

	withInactive := includeInactive(c, domain.PermReadReservations)
	existing, err := h.reservationService.Get(c.Context(), id, withInactive)
	if err != nil {
		if errors.Is(err, services.ErrReservationNotFound) {
			return response.NotFound(c, "Reservation not found")
		}
		return response.InternalServerError(c, "Failed to get reservation")
	}

	if !middleware.CanAct(c, domain.ActionReturnReservations, existing.UserID) {
		return response.Forbidden(c, "You don't have permission to return this reservation")
	}

	reservation, err := h.reservationService.Return(c.Context(), id, withInactive)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReservationNotFound):
			return response.NotFound(c, "Reservation not found or already returned")
		case errors.Is(err, domain.ErrIntegrityFault):
			return response.InternalServerError(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to return reservation")
		}
	}

	return response.Success(c, "Book returned successfully", reservation.ToResponse())
}

// Delete handles soft-deleting a reservation
// @Summary Delete reservation
// @Description Soft-delete a reservation and hide its history entries
// @Tags Reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid reservation ID")
	}

	existing, err := h.reservationService.Get(c.Context(), id, false)
	if err != nil {
		if errors.Is(err, services.ErrReservationNotFound) {
			return response.NotFound(c, "Reservation not found")
		}
		return response.InternalServerError(c, "Failed to get reservation")
	}

	if !middleware.CanAct(c, domain.ActionDeleteReservations, existing.UserID) {
		return response.Forbidden(c, "You don't have permission to delete this reservation")
	}

	reservation, err := h.reservationService.SoftDelete(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrReservationNotFound):
			return response.NotFound(c, "Reservation not found")
		case errors.Is(err, domain.ErrIntegrityFault):
			return response.InternalServerError(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to delete reservation")
		}
	}

	return response.Success(c, "Reservation deleted successfully", reservation.ToResponse())
}

// parseID parses the :id path parameter
func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// includeInactive reads the include_inactive query flag. It is honored
// only for callers holding perm; everyone else keeps the active view.
func includeInactive(c *fiber.Ctx, perm string) bool {
	return c.QueryBool("include_inactive") && middleware.CallerPermissions(c).Has(perm)
}
