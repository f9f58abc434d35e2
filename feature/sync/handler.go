package sync

import (
	"encoding/json"
	"errors"

	"jsoncache/core/cacheerr"
	"jsoncache/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the cache.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// ImportRequest names a bundle object and the entity paths inside it.
type ImportRequest struct {
	Object  string            `json:"object"`
	Mapping map[string]string `json:"mapping"`
}

// RegisterRoutes registers the cache routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/cache")
	group.Post("/stage/:entity", h.HandleStage)
	group.Post("/apply", h.HandleApply)
	group.Get("/pending", h.HandlePending)
	group.Delete("/pending", h.HandleDiscard)
	group.Post("/import", h.HandleImport)
	group.Post("/export/:entity", h.HandleExport)
	group.Get("/snapshots", h.HandleSnapshots)
	group.Get("/drift/:entity", h.HandleDrift)
	group.Get("/:entity/:id", h.HandleObject)
	group.Get("/:entity/:id/:relationship", h.HandleRelated)
}

// HandleStage stages a JSON object or array of objects for an entity.
// @Summary Stage Dictionaries
// @Description Stages the body for the entity, replacing anything staged for it before.
// @Tags cache
// @Accept json
// @Produce json
// @Param entity path string true "Entity name"
// @Success 202 {object} map[string]interface{} "Staged count"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Unknown entity"
// @Router /cache/stage/{entity} [post]
func (h *Handler) HandleStage(c *fiber.Ctx) error {
	entity := c.Params("entity")

	var payload any
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body", "details": err.Error()})
	}

	var dicts []map[string]any
	switch v := payload.(type) {
	case map[string]any:
		dicts = []map[string]any{v}
	case []any:
		for _, item := range v {
			dict, ok := item.(map[string]any)
			if !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "array items must be objects"})
			}
			dicts = append(dicts, dict)
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "body must be an object or an array of objects"})
	}

	if err := h.service.Stage(entity, dicts); err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"entity": entity, "staged": len(dicts)})
}

// HandleApply runs a merge cycle.
// @Summary Apply Staged Dictionaries
// @Description Merges everything staged. With async=true the cycle runs in the background.
// @Tags cache
// @Produce json
// @Param async query boolean false "Do not wait for the cycle"
// @Success 200 {object} merge.Result "Cycle result"
// @Success 202 {object} map[string]string "Cycle started"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /cache/apply [post]
func (h *Handler) HandleApply(c *fiber.Ctx) error {
	if c.QueryBool("async") {
		h.service.ApplyAsync()
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
	}

	res, err := h.service.Apply(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	logger.WithRayID(h.logger, c).Info("Merge applied", zap.Int("objects", res.Objects))
	return c.JSON(res)
}

// HandlePending reports the staged dictionaries per entity.
// @Summary Pending Staged Dictionaries
// @Tags cache
// @Produce json
// @Success 200 {object} map[string]int "Counts per entity"
// @Router /cache/pending [get]
func (h *Handler) HandlePending(c *fiber.Ctx) error {
	return c.JSON(h.service.Pending())
}

// HandleDiscard drops everything staged.
// @Summary Discard Staged Dictionaries
// @Tags cache
// @Produce json
// @Success 200 {object} map[string]int "Dropped counts per entity"
// @Router /cache/pending [delete]
func (h *Handler) HandleDiscard(c *fiber.Ctx) error {
	return c.JSON(h.service.Discard())
}

// HandleImport stages and applies a bundle object from the bucket.
// @Summary Import Bundle
// @Tags cache
// @Accept json
// @Produce json
// @Param request body ImportRequest true "Bundle object and entity paths"
// @Success 200 {object} merge.Result "Cycle result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /cache/import [post]
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	var req ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body", "details": err.Error()})
	}
	if req.Object == "" || len(req.Mapping) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "object and mapping are required"})
	}

	res, err := h.service.ImportBundle(c.Context(), req.Object, Mapping(req.Mapping))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

// HandleExport writes a snapshot of an entity to the bucket.
// @Summary Export Snapshot
// @Tags cache
// @Produce json
// @Param entity path string true "Entity name"
// @Param object query string false "Object name, defaults to snapshots/{entity}.json"
// @Success 200 {object} map[string]interface{} "Object name and count"
// @Failure 404 {object} map[string]string "Unknown entity"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /cache/export/{entity} [post]
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	name, count, err := h.service.Export(c.Context(), c.Params("entity"), c.Query("object"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"object": name, "objects": count})
}

// HandleSnapshots lists exported snapshots.
// @Summary List Snapshots
// @Tags cache
// @Produce json
// @Success 200 {array} string "Object names"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /cache/snapshots [get]
func (h *Handler) HandleSnapshots(c *fiber.Ctx) error {
	names, err := h.service.Snapshots(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(names)
}

// HandleDrift compares the stored objects of an entity with a snapshot.
// @Summary Snapshot Drift
// @Description Reports identifiers missing on either side and fields whose values differ.
// @Tags cache
// @Produce json
// @Param entity path string true "Entity name"
// @Param object query string false "Snapshot object name"
// @Param drifted query bool false "Only return results that are not in sync"
// @Success 200 {object} map[string]interface{} "Drift report"
// @Failure 404 {object} map[string]string "Unknown entity"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /cache/drift/{entity} [get]
func (h *Handler) HandleDrift(c *fiber.Ctx) error {
	report, err := h.service.Drift(c.Context(), c.Params("entity"), c.Query("object"))
	if err != nil {
		return h.fail(c, err)
	}
	if c.QueryBool("drifted") {
		report.Results = report.Drifted()
	}
	return c.JSON(report)
}

// HandleObject returns one serialized object.
// @Summary Get Object
// @Tags cache
// @Produce json
// @Param entity path string true "Entity name"
// @Param id path string true "Identifier"
// @Success 200 {object} map[string]interface{} "Serialized object"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /cache/{entity}/{id} [get]
func (h *Handler) HandleObject(c *fiber.Ctx) error {
	dict, err := h.service.Object(c.Context(), c.Params("entity"), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dict)
}

// HandleRelated returns the objects on the far side of a relationship.
// @Summary Get Related Objects
// @Tags cache
// @Produce json
// @Param entity path string true "Entity name"
// @Param id path string true "Identifier"
// @Param relationship path string true "Relationship name"
// @Success 200 {array} map[string]interface{} "Serialized objects"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /cache/{entity}/{id}/{relationship} [get]
func (h *Handler) HandleRelated(c *fiber.Ctx) error {
	list, err := h.service.Related(c.Context(), c.Params("entity"), c.Params("id"), c.Params("relationship"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	l := logger.WithRayID(h.logger, c)
	if status >= fiber.StatusInternalServerError {
		l.Error("Cache request failed", zap.Error(err))
	} else {
		l.Warn("Cache request rejected", zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	if errors.Is(err, ErrObjectNotFound) {
		return fiber.StatusNotFound
	}
	switch cacheerr.KindOf(err) {
	case cacheerr.KindNoSuchEntity:
		return fiber.StatusNotFound
	case cacheerr.KindBadState:
		return fiber.StatusUnprocessableEntity
	case cacheerr.KindStoreUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
