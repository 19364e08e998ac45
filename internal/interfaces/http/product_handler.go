package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/bar-ledger/internal/application/dto"
	"github.com/jhoicas/bar-ledger/internal/application/ledger"
	"github.com/rs/zerolog"
)

// ProductHandler maneja las peticiones HTTP para Product (protegido).
type ProductHandler struct {
	svc             *ledger.Service
	queries         *ledger.QueryService
	lowStockDefault float64
	log             zerolog.Logger
}

// NewProductHandler construye el handler.
func NewProductHandler(svc *ledger.Service, queries *ledger.QueryService, lowStockDefault float64, log zerolog.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, queries: queries, lowStockDefault: lowStockDefault, log: log}
}

// Create godoc
// @Summary      Crear producto
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductRequest  true  "Datos del producto"
// @Success      201   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Name == "" || in.TotalCapacity == nil || in.InitialRemaining == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "name, total_capacity e initial_remaining son requeridos"})
	}
	p, err := h.svc.CreateProduct(c.UserContext(), ledger.CreateProductInput{
		Name:             in.Name,
		TotalCapacity:    *in.TotalCapacity,
		InitialRemaining: *in.InitialRemaining,
		CategoryID:       in.CategoryID,
		PricePerUnit:     in.PricePerUnit,
		Location:         in.Location,
		PhotoURL:         in.PhotoURL,
	}, actorOf(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToProductResponse(p))
}

// GetByID godoc
// @Summary      Obtener producto por ID
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
	p, err := h.queries.Product(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToProductResponse(p))
}

// List godoc
// @Summary      Listar productos
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.ProductListResponse
// @Router       /api/products [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()
	list, err := h.queries.Products(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ProductListResponse{
		Items: dto.ToProductList(list),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// Update godoc
// @Summary      Modificar datos descriptivos del producto
// @Description  remaining y total_capacity no se modifican aquí; remaining cambia con PUT /remaining
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del producto"
// @Param        body  body  dto.UpdateProductRequest  true  "Campos a modificar"
// @Success      200   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{id} [patch]
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	p, err := h.svc.UpdateDetails(c.UserContext(), c.Params("id"), ledger.DetailsInput{
		Name:         in.Name,
		CategoryID:   in.CategoryID,
		PricePerUnit: in.PricePerUnit,
		Location:     in.Location,
		PhotoURL:     in.PhotoURL,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToProductResponse(p))
}

// Delete godoc
// @Summary      Eliminar producto y su historial
// @Tags         products
// @Security     Bearer
// @Param        id   path  string  true  "ID del producto"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LowStock godoc
// @Summary      Productos con stock bajo (0 < remaining <= threshold)
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        threshold  query  number  false  "Umbral en cl"
// @Success      200  {array}   dto.ProductResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/products/low-stock [get]
func (h *ProductHandler) LowStock(c *fiber.Ctx) error {
	threshold := h.lowStockDefault
	if raw := c.Query("threshold"); raw != "" {
		t, err := parseFloat(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "threshold debe ser numérico"})
		}
		threshold = t
	}
	list, err := h.queries.LowStock(c.UserContext(), threshold)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToProductList(list))
}

// Depleted godoc
// @Summary      Productos agotados (remaining = 0)
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ProductResponse
// @Router       /api/products/depleted [get]
func (h *ProductHandler) Depleted(c *fiber.Ctx) error {
	list, err := h.queries.Depleted(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToProductList(list))
}
