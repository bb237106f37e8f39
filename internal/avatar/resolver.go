// Package avatar resolves per-user avatar URLs from configured URL templates.
//
// A template is a URL containing the placeholder "%s", which is replaced by the
// form-encoded username. The display template is required for avatars to be
// shown; the change template is optional and may be a fixed link.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Placeholder marks where the encoded username goes in a template.
const Placeholder = "%s"

var (
	ErrNotConfigured     = errors.New("avatar url is not configured")
	ErrMalformedTemplate = errors.New("avatar url does not contain " + Placeholder)
	ErrEncoding          = errors.New("username could not be encoded")
)

// Config holds the templates for one resolver. A nil template is unset; an
// empty one is set but has no placeholder.
type Config struct {
	URL             *string
	ChangeURL       *string
	SecureTransport bool
}

// EncodeFunc turns a username into the text substituted for the placeholder.
type EncodeFunc func(username string) (string, error)

// QueryEncode form-encodes a UTF-8 username. Spaces become "+".
func QueryEncode(username string) (string, error) {
	if !utf8.ValidString(username) {
		return "", errors.New("invalid UTF-8 sequence")
	}
	return url.QueryEscape(username), nil
}

// Resolver builds avatar URLs. It holds no mutable state and is safe for
// concurrent use.
type Resolver struct {
	url       *string
	changeURL *string
	encode    EncodeFunc
	logger    *slog.Logger
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithEncoder(encode EncodeFunc) Option {
	return func(r *Resolver) {
		r.encode = encode
	}
}

func NewResolver(cfg Config, opts ...Option) *Resolver {
	r := &Resolver{
		encode: QueryEncode,
		logger: slog.Default(),
	}

	if cfg.URL != nil {
		u := *cfg.URL
		// The user agent follows our redirect itself, so the avatar has to
		// match our scheme or browsers flag mixed content.
		if cfg.SecureTransport && strings.HasPrefix(u, "http://") {
			u = "https://" + strings.TrimPrefix(u, "http://")
		}
		r.url = &u
	}
	if cfg.ChangeURL != nil {
		c := *cfg.ChangeURL
		r.changeURL = &c
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the display URL for username, or one of ErrNotConfigured,
// ErrMalformedTemplate or ErrEncoding.
func (r *Resolver) Resolve(username string) (string, error) {
	if r.url == nil {
		return "", ErrNotConfigured
	}
	if !strings.Contains(*r.url, Placeholder) {
		return "", fmt.Errorf("%w: %q", ErrMalformedTemplate, *r.url)
	}

	return r.substitute(*r.url, username)
}

// URL is Resolve for callers that only render or skip the avatar. Failures
// are logged and counted, and reported as ok == false.
func (r *Resolver) URL(ctx context.Context, username string) (string, bool) {
	u, err := r.Resolve(username)
	if err != nil {
		r.report(ctx, err)
		return "", false
	}
	return u, true
}

// ChangeURL returns the link where username can change their avatar. A
// missing template, a template without placeholder or an empty username
// leave the template as configured. Only an encoding failure is reported.
func (r *Resolver) ChangeURL(ctx context.Context, username string) (string, bool) {
	if r.changeURL == nil {
		return "", false
	}
	if username == "" {
		return *r.changeURL, true
	}

	u, err := r.substitute(*r.changeURL, username)
	if err != nil {
		r.report(ctx, err)
		return "", false
	}
	return u, true
}

func (r *Resolver) substitute(template, username string) (string, error) {
	if !strings.Contains(template, Placeholder) {
		return template, nil
	}

	encoded, err := r.encode(username)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	return strings.Replace(template, Placeholder, encoded, 1), nil
}

func (r *Resolver) report(ctx context.Context, err error) {
	reason := Reason(err)
	resolutionFailures.WithLabelValues(reason).Inc()

	switch reason {
	case ReasonNotConfigured:
		r.logger.WarnContext(ctx, "Avatar URL is not configured, cannot show avatars. Please configure AVATAR_URL",
			"reason", reason)
	case ReasonMalformedTemplate:
		r.logger.WarnContext(ctx, "Avatar URL does not contain "+Placeholder+", so it cannot be replaced with the username",
			"reason", reason, "error", err)
	default:
		r.logger.ErrorContext(ctx, "Failed to encode username for avatar URL",
			"reason", reason, "error", err)
	}
}
