package http

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/bar-ledger/internal/application/dto"
	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/rs/zerolog"
)

// LedgerHandler cambios de remaining y consultas del historial.
type LedgerHandler struct {
	svc         *ledger.Service
	queries     *ledger.QueryService
	retries     int
	recentLimit int
	log         zerolog.Logger
}

// NewLedgerHandler construye el handler. retries son los intentos totales ante un conflicto.
func NewLedgerHandler(svc *ledger.Service, queries *ledger.QueryService, retries, recentLimit int, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, queries: queries, retries: retries, recentLimit: recentLimit, log: log}
}

// ApplyChange godoc
// @Summary      Fijar el remaining de un producto
// @Description  Registra una entrada en el ledger. Si el valor es igual al actual no se escribe nada (200, entry null).
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del producto"
// @Param        body  body  dto.ApplyChangeRequest  true  "Nuevo remaining en cl"
// @Success      201   {object}  dto.ApplyChangeResponse
// @Success      200   {object}  dto.ApplyChangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/products/{id}/remaining [put]
func (h *LedgerHandler) ApplyChange(c *fiber.Ctx) error {
	var in dto.ApplyChangeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Remaining == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "remaining es requerido"})
	}
	change := ledger.ChangeInput{
		ProductID:         c.Params("id"),
		Remaining:         *in.Remaining,
		ActorID:           actorOf(c),
		Note:              in.Note,
		ExpectedRemaining: in.ExpectedRemaining,
	}
	var res *ledger.ChangeResult
	err := ledger.RetryOnConflict(c.UserContext(), h.retries, func(ctx context.Context) error {
		var err error
		res, err = h.svc.ApplyChange(ctx, change)
		return err
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	status := fiber.StatusOK
	if res.Changed {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.ToApplyChangeResponse(res))
}

// History godoc
// @Summary      Historial de un producto (más reciente primero)
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {array}   dto.LedgerEntryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/history [get]
func (h *LedgerHandler) History(c *fiber.Ctx) error {
	list, err := h.queries.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToLedgerEntryList(list))
}

// Verify godoc
// @Summary      Reproducir el historial y compararlo con el remaining actual
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.VerifyResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id}/verify [get]
func (h *LedgerHandler) Verify(c *fiber.Ctx) error {
	r, err := h.queries.Verify(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToVerifyResponse(r))
}

// Recent godoc
// @Summary      Últimas entradas de todos los productos
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "Máximo de entradas"
// @Success      200  {array}   dto.LedgerEntryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/ledger/recent [get]
func (h *LedgerHandler) Recent(c *fiber.Ctx) error {
	limit := h.recentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "limit debe ser entero"})
		}
		limit = n
	}
	list, err := h.queries.Recent(c.UserContext(), limit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToLedgerEntryList(list))
}

// List godoc
// @Summary      Listar todas las entradas del ledger
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.LedgerEntryListResponse
// @Router       /api/ledger [get]
func (h *LedgerHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()
	list, err := h.queries.Entries(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.LedgerEntryListResponse{
		Items: dto.ToLedgerEntryList(list),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// GetEntry godoc
// @Summary      Obtener una entrada del ledger
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la entrada"
// @Success      200  {object}  dto.LedgerEntryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/{id} [get]
func (h *LedgerHandler) GetEntry(c *fiber.Ctx) error {
	e, err := h.queries.Entry(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToLedgerEntryResponse(e))
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
