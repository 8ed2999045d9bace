package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vibecodefixers/help-request-service/internal/api/dto"
	"github.com/vibecodefixers/help-request-service/internal/auth"
	"github.com/vibecodefixers/help-request-service/internal/domain"
	"github.com/vibecodefixers/help-request-service/internal/service"
	apperrors "github.com/vibecodefixers/help-request-service/pkg/util"
)

// HelpRequestsHandler manages requester-facing endpoints and the public board.
type HelpRequestsHandler struct {
	service *service.HelpRequestService
}

// NewHelpRequestsHandler constructs handler.
func NewHelpRequestsHandler(requestService *service.HelpRequestService) *HelpRequestsHandler {
	return &HelpRequestsHandler{service: requestService}
}

// Create POST /requests.
func (h *HelpRequestsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateHelpRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if details := dto.Validate(req); details != nil {
		return apperrors.NewValidationError("invalid payload", details)
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	input := service.HelpRequestCreateInput{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Language:    req.Language,
		Framework:   req.Framework,
		CodeSnippet: req.CodeSnippet,
		ReproSteps:  req.ReproSteps,
		Tags:        req.Tags,
		IsPublic:    isPublic,
		Priority:    req.Priority,
	}
	request, err := h.service.Create(c.Context(), principal.User, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": requestSummary(request)})
}

// ListMine GET /requests.
func (h *HelpRequestsHandler) ListMine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	limit, offset := parsePage(c)
	requests, err := h.service.ListForRequester(c.Context(), principal.User.ID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaries(requests)})
}

// Get GET /requests/:id.
func (h *HelpRequestsHandler) Get(c *fiber.Ctx) error {
	request, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// Cancel POST /requests/:id/cancel.
func (h *HelpRequestsHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	request, err := h.service.Cancel(c.Context(), c.Params("id"), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestSummary(request)})
}

// AcceptSolution POST /requests/:id/solution/accept.
func (h *HelpRequestsHandler) AcceptSolution(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AcceptSolutionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	request, err := h.service.AcceptSolution(c.Context(), c.Params("id"), principal.User.ID, req.Rating, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// RejectSolution POST /requests/:id/solution/reject.
func (h *HelpRequestsHandler) RejectSolution(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.RejectSolutionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if details := dto.Validate(req); details != nil {
		return apperrors.NewValidationError("invalid payload", details)
	}
	request, err := h.service.RejectSolution(c.Context(), c.Params("id"), principal.User.ID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestDetail(request)})
}

// ListOpen GET /requests/open.
func (h *HelpRequestsHandler) ListOpen(c *fiber.Ctx) error {
	filter := parseOpenFilter(c)
	requests, err := h.service.ListOpen(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaries(requests)})
}

// Search GET /requests/search.
func (h *HelpRequestsHandler) Search(c *fiber.Ctx) error {
	limit, _ := parsePage(c)
	requests, err := h.service.Search(c.Context(), c.Query("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaries(requests)})
}

// History GET /requests/:id/history.
func (h *HelpRequestsHandler) History(c *fiber.Ctx) error {
	entries, err := h.service.History(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]dto.RequestHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.RequestHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

func parseOpenFilter(c *fiber.Ctx) service.OpenRequestFilter {
	filter := service.OpenRequestFilter{}
	if typeStr := c.Query("type"); typeStr != "" {
		requestType := domain.RequestType(strings.ToUpper(strings.TrimSpace(typeStr)))
		filter.Type = &requestType
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		priority := domain.RequestPriority(strings.ToUpper(strings.TrimSpace(priorityStr)))
		filter.Priority = &priority
	}
	if language := c.Query("language"); language != "" {
		filter.Language = &language
	}
	if framework := c.Query("framework"); framework != "" {
		filter.Framework = &framework
	}
	if tag := c.Query("tag"); tag != "" {
		filter.Tag = &tag
	}
	filter.Limit, filter.Offset = parsePage(c)
	return filter
}

func parsePage(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	return pageSize, (page - 1) * pageSize
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func summaries(requests []domain.HelpRequest) []dto.HelpRequestSummary {
	items := make([]dto.HelpRequestSummary, 0, len(requests))
	for i := range requests {
		items = append(items, requestSummary(&requests[i]))
	}
	return items
}

func requestSummary(request *domain.HelpRequest) dto.HelpRequestSummary {
	return dto.HelpRequestSummary{
		ID:        request.ID,
		Status:    request.Status,
		Priority:  request.Priority,
		Type:      request.Type,
		Title:     request.Title,
		Language:  request.Language,
		Framework: request.Framework,
		Tags:      request.Tags,
		IsPublic:  request.IsPublic,
		ViewCount: request.ViewCount,
		CreatedAt: request.CreatedAt,
		UpdatedAt: request.UpdatedAt,
		ExpiresAt: request.ExpiresAt,
	}
}

func requestDetail(request *domain.HelpRequest) dto.HelpRequestDetailResponse {
	detail := dto.HelpRequestDetailResponse{
		ID:                request.ID,
		RequesterID:       request.RequesterID,
		AssignedExpertID:  request.AssignedExpertID,
		Status:            request.Status,
		Priority:          request.Priority,
		Type:              request.Type,
		Title:             request.Title,
		Description:       request.Description,
		Language:          request.Language,
		Framework:         request.Framework,
		CodeSnippet:       request.CodeSnippet,
		ReproSteps:        request.ReproSteps,
		Tags:              request.Tags,
		IsPublic:          request.IsPublic,
		ViewCount:         request.ViewCount,
		InterestedExperts: request.InterestedExperts.Values(),
		PreviousAttempts:  request.PreviousAttempts,
		CreatedAt:         request.CreatedAt,
		UpdatedAt:         request.UpdatedAt,
		ClaimedAt:         request.ClaimedAt,
		StartedAt:         request.StartedAt,
		CompletedAt:       request.CompletedAt,
		ExpiresAt:         request.ExpiresAt,
	}
	if request.SolutionDescription != "" || request.SolutionAccepted {
		detail.Solution = &dto.SolutionResponse{
			Description: request.SolutionDescription,
			Code:        request.SolutionCode,
			Explanation: request.SolutionExplanation,
			Accepted:    request.SolutionAccepted,
			Rating:      request.SatisfactionRating,
			Feedback:    request.Feedback,
			AcceptedAt:  request.SolutionAcceptedAt,
		}
	}
	return detail
}
