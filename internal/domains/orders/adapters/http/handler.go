package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	coupondomain "github.com/dinecore/order-engine/internal/domains/coupons/domain"
	couponports "github.com/dinecore/order-engine/internal/domains/coupons/ports"
	"github.com/dinecore/order-engine/internal/domains/orders/adapters/http/mapper"
	"github.com/dinecore/order-engine/internal/domains/orders/application"
	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
	sharederrors "github.com/dinecore/order-engine/internal/shared/errors"
)

// Handler exposes the order lifecycle over HTTP. Completion requests are
// routed through the workflow orchestrator; every other transition hits the
// service directly.
type Handler struct {
	service   ports.Service
	workflows ports.WorkflowOrchestrator
	responder *sharederrors.ChainedResponder
}

// NewHandler wires the HTTP adapter.
func NewHandler(service ports.Service, workflows ports.WorkflowOrchestrator) *Handler {
	return &Handler{
		service:   service,
		workflows: workflows,
		responder: sharederrors.NewChainedResponder("", mapDomainError),
	}
}

// Register mounts the order routes on the router group.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/orders", h.createOrder)
	v1.GET("/orders/:id", h.getOrder)
	v1.POST("/orders/:id/transitions", h.transition)
	v1.GET("/orders/:id/bill", h.getBill)
	v1.POST("/orders/:id/bill/payment", h.payBill)
	v1.POST("/orders/:id/discount-preview", h.previewDiscount)
}

func (h *Handler) createOrder(c *gin.Context) {
	var req mapper.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	input, err := mapper.ToCreateOrderInput(req)
	if err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	order, err := h.service.CreateOrder(c.Request.Context(), input)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapper.FromDomainOrder(order))
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainOrder(order))
}

func (h *Handler) transition(c *gin.Context) {
	var req mapper.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	input, err := mapper.ToTransitionInput(c.Param("id"), req)
	if err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	var order *domain.Order
	if input.Target == domain.StatusCompleted {
		order, err = h.workflows.CompleteOrder(c.Request.Context(), input)
	} else {
		order, err = h.service.Transition(c.Request.Context(), input)
	}
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainOrder(order))
}

func (h *Handler) getBill(c *gin.Context) {
	bill, err := h.service.GetBill(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainBill(bill))
}

func (h *Handler) payBill(c *gin.Context) {
	bill, err := h.service.PayBill(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromDomainBill(bill))
}

func (h *Handler) previewDiscount(c *gin.Context) {
	var req mapper.PreviewDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	input := mapper.ToPreviewDiscountInput(c.Param("id"), req)
	discount, err := h.service.PreviewDiscount(c.Request.Context(), input)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.FromAppliedDiscount(discount))
}

// mapDomainError translates domain and application errors into RFC 7807
// problems. Unmapped errors fall through to the internal-error default.
func mapDomainError(err error) (sharederrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return sharederrors.NewNotFoundProblem("order", nil).WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrBillNotFound):
		return sharederrors.NewNotFoundProblem("bill", nil).WithDetail(err.Error()), true
	case errors.Is(err, couponports.ErrNotFound):
		return sharederrors.NewNotFoundProblem("coupon", nil).WithDetail(err.Error()), true
	case errors.Is(err, application.ErrInvalidInput):
		return sharederrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, domain.ErrOrderFinalized),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrBillAlreadyPaid):
		return sharederrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, application.ErrCouponConsumptionFailed):
		return sharederrors.ErrConflict.WithDetail(err.Error()), true
	case isCouponRejection(err):
		return sharederrors.ErrUnprocessable.WithDetail(err.Error()), true
	default:
		return sharederrors.ProblemDetail{}, false
	}
}

func isCouponRejection(err error) bool {
	return errors.Is(err, coupondomain.ErrCouponInactive) ||
		errors.Is(err, coupondomain.ErrCouponExpired) ||
		errors.Is(err, coupondomain.ErrCouponExhausted) ||
		errors.Is(err, coupondomain.ErrCouponNotApplicable) ||
		errors.Is(err, coupondomain.ErrBelowMinimumOrder)
}
