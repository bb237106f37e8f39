package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"avatar-service/internal/avatar"
	"avatar-service/internal/events"
	"avatar-service/internal/repository"

	"github.com/google/uuid"
)

// ErrAvatarUnavailable means no avatar should be rendered. The reason has
// already been logged by the resolver.
var ErrAvatarUnavailable = errors.New("avatar unavailable")

type AvatarLinks struct {
	AvatarURL       string
	ChangeAvatarURL string
}

type UploadURL struct {
	URL       string
	ObjectKey string
}

type AvatarService interface {
	DisplayURL(ctx context.Context, username string, size int) (string, error)
	ChangeURL(ctx context.Context, username string) (string, error)
	LinksByID(ctx context.Context, userID uuid.UUID, size int) (*AvatarLinks, error)
	UploadURL(ctx context.Context, userID uuid.UUID) (*UploadURL, error)
}

type Presigner interface {
	GeneratePresignedUploadURL(ctx context.Context, objectKey string) (string, error)
}

type avatarService struct {
	userRepo   repository.UserRepository
	resolver   *avatar.Resolver
	uploadKeys *avatar.Resolver
	presigner  Presigner
	publisher  events.EventPublisher
}

func NewAvatarService(
	userRepo repository.UserRepository,
	resolver *avatar.Resolver,
	uploadKeys *avatar.Resolver,
	presigner Presigner,
	publisher events.EventPublisher,
) AvatarService {
	return &avatarService{
		userRepo:   userRepo,
		resolver:   resolver,
		uploadKeys: uploadKeys,
		presigner:  presigner,
		publisher:  publisher,
	}
}

// DisplayURL resolves the avatar of an existing user. size is accepted for
// the host contract; templates have no size placeholder.
func (s *avatarService) DisplayURL(ctx context.Context, username string, size int) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	u, ok := s.resolver.URL(ctx, user.Username)
	if !ok {
		return "", ErrAvatarUnavailable
	}
	return u, nil
}

func (s *avatarService) ChangeURL(ctx context.Context, username string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	u, ok := s.resolver.ChangeURL(ctx, user.Username)
	if !ok || u == "" {
		return "", ErrAvatarUnavailable
	}
	return u, nil
}

// LinksByID returns both links for a user. A missing link is left empty
// rather than failing the whole lookup.
func (s *avatarService) LinksByID(ctx context.Context, userID uuid.UUID, size int) (*AvatarLinks, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	links := &AvatarLinks{}
	if u, ok := s.resolver.URL(ctx, user.Username); ok {
		links.AvatarURL = u
	}
	if u, ok := s.resolver.ChangeURL(ctx, user.Username); ok {
		links.ChangeAvatarURL = u
	}
	return links, nil
}

func (s *avatarService) UploadURL(ctx context.Context, userID uuid.UUID) (*UploadURL, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	objectKey, err := s.uploadKeys.Resolve(user.Username)
	if err != nil {
		return nil, fmt.Errorf("build object key: %w", err)
	}

	uploadURL, err := s.presigner.GeneratePresignedUploadURL(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	if err := s.publisher.PublishAvatarUploadRequested(user.ID, objectKey); err != nil {
		slog.WarnContext(ctx, "Failed to publish avatar upload event", "user_id", user.ID, "error", err)
	}

	return &UploadURL{URL: uploadURL, ObjectKey: objectKey}, nil
}
