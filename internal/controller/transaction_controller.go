package controller

import (
	"ai-lending-be/internal/pkg/serverutils"
	"ai-lending-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ITransactionController interface {
	RegisterRoutes(r fiber.Router)
	ListByLoan(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
}

type transactionController struct {
	loanService service.ILoanService
}

func NewTransactionController(loanService service.ILoanService) ITransactionController {
	return &transactionController{
		loanService: loanService,
	}
}

func (c *transactionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/transaction/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("", c.ListByLoan)
	h.Get(":id", c.Show)
}

func (c *transactionController) ListByLoan(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	loanId, err := uuid.Parse(ctx.Query("loan_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "loan_id query parameter is required")
	}

	res, err := c.loanService.GetTransactionsForLoan(ctx.Context(), userId, loanId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list transactions", res))
}

func (c *transactionController) Show(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	txnId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid transaction id")
	}

	res, err := c.loanService.GetTransaction(ctx.Context(), userId, txnId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get transaction", res))
}
