// Package auth validates the API credential before the client accepts it:
// a cheap format check first, then a live probe against the profile
// endpoint. The accepted key persists across restarts; nothing else does.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/zhouzirui/nymia/internal/identity"
	"github.com/zhouzirui/nymia/internal/transport"
)

var (
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrKeyRejected      = errors.New("API key rejected by backend")
)

// keySegmentRe matches one base64url segment of a JWT-shaped key.
var keySegmentRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateKeyFormat performs the basic JWT shape check: three dot-separated
// base64url segments.
func ValidateKeyFormat(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}

	parts := strings.Split(key, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if !keySegmentRe.MatchString(part) {
			return false
		}
	}
	return true
}

// Probe checks a credential against the backend profile endpoint.
func Probe(ctx context.Context, api *transport.Client) error {
	_, err := api.Get(ctx, "/profile/")
	return err
}

// Service 负责凭证的校验与持久化。
type Service struct {
	baseURL string
	keys    identity.Store
}

// NewService 创建凭证服务，keys 存放被接受的 API key。
func NewService(baseURL string, keys identity.Store) *Service {
	return &Service{baseURL: baseURL, keys: keys}
}

// Login accepts a credential after both checks pass and persists it.
func (s *Service) Login(ctx context.Context, key string) error {
	if !ValidateKeyFormat(key) {
		return ErrInvalidKeyFormat
	}

	if err := Probe(ctx, transport.New(s.baseURL, key)); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyRejected, err)
	}

	if err := s.keys.Save(key); err != nil {
		return fmt.Errorf("store API key: %w", err)
	}
	return nil
}

// Logout drops the persisted credential.
func (s *Service) Logout() error {
	return s.keys.Clear()
}

// CurrentKey returns the persisted credential, if any.
func (s *Service) CurrentKey() (string, bool) {
	return s.keys.Load()
}
