package service

import (
	"context"
	"log/slog"
	"strings"

	"clanhub/internal/authz"
	"clanhub/internal/cache"
	"clanhub/internal/models"
	"clanhub/internal/repository"
	"clanhub/internal/validation"
)

// CreateClanInput is the payload for creating a clan.
type CreateClanInput struct {
	Name              string                `json:"name"`
	Description       string                `json:"description"`
	BannerURL         string                `json:"banner_url"`
	DiscordInviteLink string                `json:"discord_invite_link"`
	Visibility        models.ClanVisibility `json:"visibility"`
}

// UpdateClanInput changes a clan's profile. Nil fields are left unchanged.
type UpdateClanInput struct {
	Description       *string                `json:"description"`
	BannerURL         *string                `json:"banner_url"`
	DiscordInviteLink *string                `json:"discord_invite_link"`
	Visibility        *models.ClanVisibility `json:"visibility"`
}

func validVisibility(v models.ClanVisibility) bool {
	return v == models.ClanVisibilityVisible || v == models.ClanVisibilityHidden
}

func (in UpdateClanInput) validate() error {
	if in.Description != nil {
		if err := validation.ValidateDescription(*in.Description); err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	if in.BannerURL != nil {
		if err := validation.ValidateBannerURL(*in.BannerURL); err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	if in.DiscordInviteLink != nil {
		if err := validation.ValidateDiscordInviteLink(*in.DiscordInviteLink); err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	if in.Visibility != nil && !validVisibility(*in.Visibility) {
		return models.NewValidationError("visibility must be visible or hidden")
	}
	return nil
}

// ClanService creates clans and maintains their public profile.
type ClanService struct {
	store repository.Store
}

// NewClanService returns a new ClanService.
func NewClanService(store repository.Store) *ClanService {
	return &ClanService{store: store}
}

// Create makes a new clan owned by creatorID, who becomes its Creator member.
func (s *ClanService) Create(ctx context.Context, creatorID uint, in CreateClanInput) (_ *models.Clan, err error) {
	ctx, done := track(ctx, "clan", "create", creatorID)
	defer func() { done(err, slog.String("name", in.Name)) }()

	in.Name = strings.TrimSpace(in.Name)
	if err := validation.ValidateClanName(in.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Visibility == "" {
		in.Visibility = models.ClanVisibilityVisible
	}
	profile := UpdateClanInput{Description: &in.Description, BannerURL: &in.BannerURL, DiscordInviteLink: &in.DiscordInviteLink, Visibility: &in.Visibility}
	if err := profile.validate(); err != nil {
		return nil, err
	}

	var clan *models.Clan
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := activeActor(ctx, tx, creatorID); err != nil {
			return err
		}
		clan = &models.Clan{
			Name:              in.Name,
			Description:       in.Description,
			BannerURL:         in.BannerURL,
			DiscordInviteLink: in.DiscordInviteLink,
			Visibility:        in.Visibility,
			ApplicationStatus: models.ApplicationStatusNone,
			OwnerUserID:       creatorID,
			MemberCount:       1,
		}
		if err := tx.Clans().Create(ctx, clan); err != nil {
			return err
		}
		return tx.Membership().CreateMember(ctx, &models.ClanMember{
			UserID: creatorID,
			ClanID: clan.ID,
			Role:   models.ClanRoleCreator,
		})
	})
	if err != nil {
		return nil, err
	}
	return clan, nil
}

// UpdateProfile edits the clan's public profile. Banned clans are frozen.
func (s *ClanService) UpdateProfile(ctx context.Context, actorID, clanID uint, in UpdateClanInput) (_ *models.Clan, err error) {
	ctx, done := track(ctx, "clan", "update_profile", actorID)
	defer func() { done(err, slog.Uint64("clan_id", uint64(clanID))) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	var clan *models.Clan
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		current, err := tx.Clans().GetForUpdate(ctx, clanID)
		if err != nil {
			return err
		}
		if _, err := clanStaff(ctx, tx, actorID, clanID, authz.ActionEditProfile); err != nil {
			return err
		}
		if current.Banned {
			return models.NewInvalidStateError(models.ReasonClanBanned, "A banned clan cannot change its profile")
		}
		update := repository.ClanProfileUpdate{
			Description:       in.Description,
			BannerURL:         in.BannerURL,
			DiscordInviteLink: in.DiscordInviteLink,
			Visibility:        in.Visibility,
		}
		if err := tx.Clans().UpdateProfile(ctx, clanID, update); err != nil {
			return staleAs(err, models.NewNotFoundError("Clan", clanID))
		}
		clan, err = tx.Clans().GetByID(ctx, clanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateClan(ctx, clanID)
	return clan, nil
}

// Get returns a clan, served from cache when warm.
func (s *ClanService) Get(ctx context.Context, clanID uint) (*models.Clan, error) {
	var clan models.Clan
	err := cache.Aside(ctx, cache.ClanKey(clanID), &clan, cache.ClanTTL, func() error {
		loaded, err := s.store.Clans().GetByID(ctx, clanID)
		if err != nil {
			return err
		}
		clan = *loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &clan, nil
}

// List returns visible, unbanned clans. Site staff may include hidden and banned ones.
func (s *ClanService) List(ctx context.Context, actorID uint, includeHidden bool, limit, offset int) ([]models.Clan, error) {
	if includeHidden {
		if _, err := siteStaff(ctx, s.store, actorID, models.SiteRoleCurrator); err != nil {
			return nil, err
		}
	}
	limit, offset = clampPage(limit, offset)
	return s.store.Clans().List(ctx, limit, offset, includeHidden)
}
