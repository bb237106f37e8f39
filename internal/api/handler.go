package api

import (
	"errors"
	"log/slog"
	"net/url"

	"avatar-service/internal/repository"
	"avatar-service/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AvatarHandler struct {
	avatarService service.AvatarService
	validate      *validator.Validate
}

func NewAvatarHandler(avatarService service.AvatarService) *AvatarHandler {
	return &AvatarHandler{
		avatarService: avatarService,
		validate:      validator.New(),
	}
}

type avatarQuery struct {
	Size int `query:"s" validate:"omitempty,min=1,max=2048"`
}

type AvatarLinksResponse struct {
	AvatarURL       string `json:"avatar_url,omitempty"`
	ChangeAvatarURL string `json:"change_avatar_url,omitempty"`
}

type UploadURLResponse struct {
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
}

func (h *AvatarHandler) parseSize(c *fiber.Ctx) (int, error) {
	var q avatarQuery
	if err := c.QueryParser(&q); err != nil {
		return 0, err
	}
	if err := h.validate.Struct(&q); err != nil {
		return 0, err
	}
	return q.Size, nil
}

// RedirectAvatar sends the user agent to the resolved avatar image.
// GET /v1/avatars/:username?s=N
func (h *AvatarHandler) RedirectAvatar(c *fiber.Ctx) error {
	username, err := url.PathUnescape(c.Params("username"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid username"})
	}

	size, err := h.parseSize(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	target, err := h.avatarService.DisplayURL(c.UserContext(), username, size)
	if err != nil {
		return h.lookupError(c, err)
	}

	return c.Redirect(target, fiber.StatusFound)
}

// RedirectChangeAvatar sends the user agent to where the avatar is managed.
// GET /v1/avatars/:username/change
func (h *AvatarHandler) RedirectChangeAvatar(c *fiber.Ctx) error {
	username, err := url.PathUnescape(c.Params("username"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid username"})
	}

	target, err := h.avatarService.ChangeURL(c.UserContext(), username)
	if err != nil {
		return h.lookupError(c, err)
	}

	return c.Redirect(target, fiber.StatusFound)
}

// GetUserAvatarLinks is the internal lookup used by other services.
// GET /v1/users/:id/avatar
func (h *AvatarHandler) GetUserAvatarLinks(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID format"})
	}

	return h.writeLinks(c, userID)
}

// GetMyAvatarLinks returns the caller's avatar links.
// GET /v1/users/me/avatar
func (h *AvatarHandler) GetMyAvatarLinks(c *fiber.Ctx) error {
	userID, err := userIDFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	return h.writeLinks(c, userID)
}

func (h *AvatarHandler) writeLinks(c *fiber.Ctx, userID uuid.UUID) error {
	size, err := h.parseSize(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	links, err := h.avatarService.LinksByID(c.UserContext(), userID, size)
	if err != nil {
		return h.lookupError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(AvatarLinksResponse{
		AvatarURL:       links.AvatarURL,
		ChangeAvatarURL: links.ChangeAvatarURL,
	})
}

// GetAvatarUploadURL hands out a presigned upload for the caller's avatar.
// POST /v1/users/me/avatar/upload-url
func (h *AvatarHandler) GetAvatarUploadURL(c *fiber.Ctx) error {
	userID, err := userIDFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	up, err := h.avatarService.UploadURL(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		slog.ErrorContext(c.UserContext(), "Error generating avatar upload URL", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not generate upload URL"})
	}

	return c.Status(fiber.StatusOK).JSON(UploadURLResponse{
		UploadURL: up.URL,
		ObjectKey: up.ObjectKey,
	})
}

func (h *AvatarHandler) lookupError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAvatarUnavailable):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		slog.ErrorContext(c.UserContext(), "Error resolving avatar", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not resolve avatar"})
	}
}
