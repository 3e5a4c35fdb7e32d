package controller

import (
	"ai-lending-be/internal/dto"
	"ai-lending-be/internal/pkg/serverutils"
	"ai-lending-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ILoanController interface {
	RegisterRoutes(r fiber.Router)
	Calculate(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Accept(ctx *fiber.Ctx) error
	UpdateStatus(ctx *fiber.Ctx) error
	RecordRepayment(ctx *fiber.Ctx) error
	RecordAdjustment(ctx *fiber.Ctx) error
}

type loanController struct {
	loanService service.ILoanService
}

func NewLoanController(loanService service.ILoanService) ILoanController {
	return &loanController{
		loanService: loanService,
	}
}

func (c *loanController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/loan/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("calculate", c.Calculate)
	h.Post("", c.Create)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Post(":id/accept", c.Accept)
	h.Post(":id/repayment", c.RecordRepayment)
	// Privileged transitions (disbursement, default marking, adjustments).
	h.Put(":id/status", serverutils.RequireRole("agent", "admin"), c.UpdateStatus)
	h.Post(":id/adjustment", serverutils.RequireRole("agent", "admin"), c.RecordAdjustment)
}

func (c *loanController) Calculate(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.CalculateOfferRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.loanService.PreviewOffer(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success calculate offer", res))
}

func (c *loanController) Create(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.CreateLoanRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.loanService.CreateLoan(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create loan", res))
}

func (c *loanController) List(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.loanService.ListLoans(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list loans", res))
}

func (c *loanController) Show(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid loan id")
	}

	res, err := c.loanService.GetLoan(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show loan", res))
}

func (c *loanController) Accept(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid loan id")
	}

	var req dto.AcceptLoanRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.loanService.AcceptLoan(ctx.Context(), userId, id, *req.Accepted)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success record loan decision", res))
}

func (c *loanController) UpdateStatus(ctx *fiber.Ctx) error {
	actorIdStr := ctx.Locals("user_id").(string)
	actorId, _ := uuid.Parse(actorIdStr)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid loan id")
	}

	var req dto.UpdateLoanStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.loanService.UpdateStatus(ctx.Context(), actorId, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update loan status", res))
}

func (c *loanController) RecordRepayment(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid loan id")
	}

	var req dto.RecordRepaymentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.loanService.RecordRepayment(ctx.Context(), userId, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success record repayment", res))
}

func (c *loanController) RecordAdjustment(ctx *fiber.Ctx) error {
	actorIdStr := ctx.Locals("user_id").(string)
	actorId, _ := uuid.Parse(actorIdStr)

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid loan id")
	}

	var req dto.RecordAdjustmentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.loanService.RecordAdjustment(ctx.Context(), actorId, id, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success record adjustment", res))
}
