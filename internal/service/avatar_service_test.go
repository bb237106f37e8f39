package service_test

import (
	"context"
	"errors"
	"testing"

	"avatar-service/internal/avatar"
	"avatar-service/internal/model"
	"avatar-service/internal/repository"
	"avatar-service/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	users []*model.User
	err   error
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type fakePresigner struct {
	keys []string
	err  error
}

func (f *fakePresigner) GeneratePresignedUploadURL(_ context.Context, objectKey string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, objectKey)
	return "https://s3.example/avatars/" + objectKey + "?X-Amz-Signature=abc", nil
}

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) PublishAvatarUploadRequested(_ uuid.UUID, objectKey string) error {
	f.published = append(f.published, objectKey)
	return f.err
}

func ptr(s string) *string { return &s }

type fixture struct {
	svc       service.AvatarService
	alice     *model.User
	presigner *fakePresigner
	publisher *fakePublisher
}

func newFixture(cfg avatar.Config) *fixture {
	alice := &model.User{ID: uuid.New(), Username: "alice smith", Email: "alice@example.com"}
	repo := &fakeUserRepo{users: []*model.User{alice}}
	presigner := &fakePresigner{}
	publisher := &fakePublisher{}
	uploadKeys := avatar.NewResolver(avatar.Config{URL: ptr("user-avatars/%s.jpg")})

	return &fixture{
		svc:       service.NewAvatarService(repo, avatar.NewResolver(cfg), uploadKeys, presigner, publisher),
		alice:     alice,
		presigner: presigner,
		publisher: publisher,
	}
}

func TestAvatarService_DisplayURL(t *testing.T) {
	f := newFixture(avatar.Config{URL: ptr("http://gravatar.example/%s"), SecureTransport: true})

	u, err := f.svc.DisplayURL(context.Background(), "alice smith", 80)
	require.NoError(t, err)
	require.Equal(t, "https://gravatar.example/alice+smith", u)
}

func TestAvatarService_DisplayURL_Unavailable(t *testing.T) {
	f := newFixture(avatar.Config{})

	_, err := f.svc.DisplayURL(context.Background(), "alice smith", 80)
	require.ErrorIs(t, err, service.ErrAvatarUnavailable)
}

func TestAvatarService_DisplayURL_UnknownUser(t *testing.T) {
	f := newFixture(avatar.Config{URL: ptr("https://gravatar.example/%s")})

	_, err := f.svc.DisplayURL(context.Background(), "mallory", 80)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestAvatarService_ChangeURL(t *testing.T) {
	f := newFixture(avatar.Config{ChangeURL: ptr("https://accounts.example/%s/avatar")})

	u, err := f.svc.ChangeURL(context.Background(), "alice smith")
	require.NoError(t, err)
	require.Equal(t, "https://accounts.example/alice+smith/avatar", u)

	f = newFixture(avatar.Config{})
	_, err = f.svc.ChangeURL(context.Background(), "alice smith")
	require.ErrorIs(t, err, service.ErrAvatarUnavailable)
}

func TestAvatarService_ChangeURL_EmptyTemplate(t *testing.T) {
	f := newFixture(avatar.Config{ChangeURL: ptr("")})

	u, err := f.svc.ChangeURL(context.Background(), "alice smith")
	require.ErrorIs(t, err, service.ErrAvatarUnavailable)
	require.Empty(t, u)
}

func TestAvatarService_LinksByID(t *testing.T) {
	f := newFixture(avatar.Config{URL: ptr("https://gravatar.example/%s")})

	links, err := f.svc.LinksByID(context.Background(), f.alice.ID, 0)
	require.NoError(t, err)
	require.Equal(t, "https://gravatar.example/alice+smith", links.AvatarURL)
	require.Empty(t, links.ChangeAvatarURL)

	_, err = f.svc.LinksByID(context.Background(), uuid.New(), 0)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestAvatarService_UploadURL(t *testing.T) {
	f := newFixture(avatar.Config{})

	up, err := f.svc.UploadURL(context.Background(), f.alice.ID)
	require.NoError(t, err)
	require.Equal(t, "user-avatars/alice+smith.jpg", up.ObjectKey)
	require.Contains(t, up.URL, "user-avatars/alice+smith.jpg")
	require.Equal(t, []string{"user-avatars/alice+smith.jpg"}, f.presigner.keys)
	require.Equal(t, []string{"user-avatars/alice+smith.jpg"}, f.publisher.published)
}

func TestAvatarService_UploadURL_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(avatar.Config{})
	f.publisher.err = errors.New("nats down")

	up, err := f.svc.UploadURL(context.Background(), f.alice.ID)
	require.NoError(t, err)
	require.NotEmpty(t, up.URL)
}

func TestAvatarService_UploadURL_PresignFailure(t *testing.T) {
	f := newFixture(avatar.Config{})
	f.presigner.err = errors.New("no credentials")

	_, err := f.svc.UploadURL(context.Background(), f.alice.ID)
	require.Error(t, err)
	require.Empty(t, f.publisher.published)
}
