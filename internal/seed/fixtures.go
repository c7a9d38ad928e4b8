package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"clanhub/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed fixtures/builtin.yaml
var builtinFixtures []byte

// Fixtures is the on-disk format of a fixture file.
type Fixtures struct {
	Staff []StaffFixture `yaml:"staff"`
	Clans []ClanFixture  `yaml:"clans"`
}

// StaffFixture grants a site role to a user, creating the user if needed.
type StaffFixture struct {
	Username  string          `yaml:"username"`
	DiscordID string          `yaml:"discord_id"`
	Role      models.SiteRole `yaml:"role"`
}

// ClanFixture describes a clan, its owner and its members.
type ClanFixture struct {
	Name              string                `yaml:"name"`
	Description       string                `yaml:"description"`
	Owner             string                `yaml:"owner"`
	Visibility        models.ClanVisibility `yaml:"visibility"`
	DiscordInviteLink string                `yaml:"discord_invite_link"`
	Members           []MemberFixture       `yaml:"members"`
}

// MemberFixture is a clan membership. Role defaults to member.
type MemberFixture struct {
	Username string          `yaml:"username"`
	Role     models.ClanRole `yaml:"role"`
}

// ParseFixtures decodes and validates a fixture document.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	for _, s := range fx.Staff {
		if strings.TrimSpace(s.Username) == "" {
			return nil, errors.New("staff fixture without username")
		}
		if !s.Role.Valid() || s.Role == models.SiteRoleUser {
			return nil, fmt.Errorf("staff %s: invalid site role %q", s.Username, s.Role)
		}
	}
	for i := range fx.Clans {
		c := &fx.Clans[i]
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Owner) == "" {
			return nil, errors.New("clan fixture needs a name and an owner")
		}
		if c.Visibility == "" {
			c.Visibility = models.ClanVisibilityVisible
		}
		if c.Visibility != models.ClanVisibilityVisible && c.Visibility != models.ClanVisibilityHidden {
			return nil, fmt.Errorf("clan %s: invalid visibility %q", c.Name, c.Visibility)
		}
		for j := range c.Members {
			m := &c.Members[j]
			if m.Role == "" {
				m.Role = models.ClanRoleMember
			}
			// the owner is the only creator
			if !m.Role.Valid() || m.Role == models.ClanRoleCreator {
				return nil, fmt.Errorf("clan %s member %s: invalid role %q", c.Name, m.Username, m.Role)
			}
			if m.Username == c.Owner {
				return nil, fmt.Errorf("clan %s: owner %s listed as member", c.Name, m.Username)
			}
		}
	}
	return &fx, nil
}

// LoadBuiltIn applies the embedded development fixtures.
func LoadBuiltIn(db *gorm.DB) error {
	fx, err := ParseFixtures(builtinFixtures)
	if err != nil {
		return err
	}
	return Apply(db, fx)
}

// Apply writes fixtures in one transaction. Reapplying the same fixtures
// leaves the database unchanged.
func Apply(db *gorm.DB, fx *Fixtures) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, s := range fx.Staff {
			user, err := ensureUser(tx, s.Username, s.DiscordID)
			if err != nil {
				return err
			}
			assignment := models.SiteStaffAssignment{UserID: user.ID, Role: s.Role}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
			}).Create(&assignment).Error; err != nil {
				return fmt.Errorf("staff %s: %w", s.Username, err)
			}
		}
		for _, c := range fx.Clans {
			if err := applyClan(tx, c); err != nil {
				return fmt.Errorf("clan %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

func ensureUser(tx *gorm.DB, username, discordID string) (*models.User, error) {
	var user models.User
	err := tx.Where(models.User{Username: username}).
		Attrs(models.User{DiscordID: discordID}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", username, err)
	}
	return &user, nil
}

func applyClan(tx *gorm.DB, c ClanFixture) error {
	owner, err := ensureUser(tx, c.Owner, "")
	if err != nil {
		return err
	}

	var clan models.Clan
	err = tx.Where(models.Clan{Name: c.Name}).
		Attrs(models.Clan{
			Description:       c.Description,
			Visibility:        c.Visibility,
			ApplicationStatus: models.ApplicationStatusNone,
			OwnerUserID:       owner.ID,
			DiscordInviteLink: c.DiscordInviteLink,
		}).
		Omit("Owner").
		FirstOrCreate(&clan).Error
	if err != nil {
		return err
	}

	members := map[uint]models.ClanRole{clan.OwnerUserID: models.ClanRoleCreator}
	for _, m := range c.Members {
		user, err := ensureUser(tx, m.Username, "")
		if err != nil {
			return err
		}
		members[user.ID] = m.Role
	}
	for userID, role := range members {
		member := models.ClanMember{UserID: userID, ClanID: clan.ID, Role: role}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
			return err
		}
	}

	var count int64
	if err := tx.Model(&models.ClanMember{}).Where("clan_id = ?", clan.ID).Count(&count).Error; err != nil {
		return err
	}
	return tx.Model(&models.Clan{}).Where("id = ?", clan.ID).UpdateColumn("member_count", count).Error
}
