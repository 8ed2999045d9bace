package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/vibecodefixers/help-request-service/internal/api/dto"
	"github.com/vibecodefixers/help-request-service/internal/auth"
	"github.com/vibecodefixers/help-request-service/internal/service"
	apperrors "github.com/vibecodefixers/help-request-service/pkg/util"
)

// ExpertRequestsHandler manages expert-facing lifecycle endpoints.
type ExpertRequestsHandler struct {
	service *service.HelpRequestService
}

// NewExpertRequestsHandler constructs handler.
func NewExpertRequestsHandler(requestService *service.HelpRequestService) *ExpertRequestsHandler {
	return &ExpertRequestsHandler{service: requestService}
}

// Claim POST /expert/requests/:id/claim.
func (h *ExpertRequestsHandler) Claim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("expert required")
	}
	request, err := h.service.Claim(c.Context(), c.Params("id"), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// StartWork POST /expert/requests/:id/start.
func (h *ExpertRequestsHandler) StartWork(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("expert required")
	}
	request, err := h.service.StartWork(c.Context(), c.Params("id"), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// SubmitSolution POST /expert/requests/:id/solution.
func (h *ExpertRequestsHandler) SubmitSolution(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("expert required")
	}
	var req dto.SubmitSolutionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if details := dto.Validate(req); details != nil {
		return apperrors.NewValidationError("invalid payload", details)
	}
	input := service.SolutionInput{
		Description: req.Description,
		Code:        req.Code,
		Explanation: req.Explanation,
	}
	request, err := h.service.SubmitSolution(c.Context(), c.Params("id"), principal.User.ID, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// Decline POST /expert/requests/:id/decline.
func (h *ExpertRequestsHandler) Decline(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("expert required")
	}
	if err := h.service.Decline(c.Context(), c.Params("id"), principal.User.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ExpressInterest POST /expert/requests/:id/interest.
func (h *ExpertRequestsHandler) ExpressInterest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("expert required")
	}
	if err := h.service.ExpressInterest(c.Context(), c.Params("id"), principal.User.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ReleaseClaim POST /expert/requests/:id/release.
func (h *ExpertRequestsHandler) ReleaseClaim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("expert required")
	}
	request, err := h.service.ReleaseClaim(c.Context(), c.Params("id"), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// ListAssigned GET /expert/requests.
func (h *ExpertRequestsHandler) ListAssigned(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("expert required")
	}
	limit, offset := parsePage(c)
	requests, err := h.service.ListForExpert(c.Context(), principal.User.ID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaries(requests)})
}
