package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tracking/internal/core/domain/model/identity"
	"tracking/internal/core/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormIdentityProvider implements ports.IdentityProvider.
type GormIdentityProvider struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormIdentityProvider(db *gorm.DB) *GormIdentityProvider {
	return &GormIdentityProvider{db: db, now: time.Now}
}

// Issue stores a token for the identity, replacing any previous holder of the
// same token. Used by seeding and tests.
func (p *GormIdentityProvider) Issue(ctx context.Context, token string, who identity.Identity, ttl time.Duration) error {
	if err := who.Validate(); err != nil {
		return err
	}

	dto := UserTokenDTO{Token: token, UserID: who.UserID(), Role: who.Role().String()}
	if ttl > 0 {
		expires := p.now().Add(ttl)
		dto.ExpiresAt = &expires
	}

	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&dto).Error
	if err != nil {
		return fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
	}
	return nil
}

func (p *GormIdentityProvider) Resolve(ctx context.Context, credentialToken string) (identity.Identity, error) {
	if credentialToken == "" {
		return identity.Identity{}, fmt.Errorf("%w: token is empty", ports.ErrAuthentication)
	}

	var dto UserTokenDTO
	err := p.db.WithContext(ctx).First(&dto, "token = ?", credentialToken).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return identity.Identity{}, fmt.Errorf("%w: unknown token", ports.ErrAuthentication)
	}
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
	}

	if dto.ExpiresAt != nil && !p.now().Before(*dto.ExpiresAt) {
		return identity.Identity{}, fmt.Errorf("%w: token expired", ports.ErrAuthentication)
	}

	role, err := identity.ParseRole(dto.Role)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %w", ports.ErrAuthentication, err)
	}

	return identity.NewIdentity(dto.UserID, role)
}
