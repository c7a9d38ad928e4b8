package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"clanhub/internal/middleware"
	"clanhub/internal/models"

	"gorm.io/gorm"
)

// Options configures a Seeder run.
type Options struct {
	NumUsers int
	NumClans int
	// RandSeed makes runs reproducible. Zero draws from the clock.
	RandSeed int64
}

// Seeder fills a database with a plausible community of users, clans,
// memberships and join requests, plus a platform ban and open reports.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
	rng     *rand.Rand
}

// Summary counts what a run created.
type Summary struct {
	Users        int
	Clans        int
	Members      int
	JoinRequests int
	Bans         int
	Reports      int
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.RandSeed == 0 {
		opts.RandSeed = time.Now().UnixNano()
	}
	return &Seeder{
		db:      db,
		opts:    opts,
		factory: NewFactory(db, opts.RandSeed),
		// #nosec G404: acceptable for seeding
		rng: rand.New(rand.NewSource(opts.RandSeed)),
	}
}

// clearOrder deletes children before parents.
var clearOrder = []interface{}{
	&models.Report{},
	&models.BanAppeal{},
	&models.ClanMemberBan{},
	&models.ClanBan{},
	&models.UserBan{},
	&models.ClanVerificationApplication{},
	&models.ClanJoinRequest{},
	&models.ClanMember{},
	&models.Clan{},
	&models.SiteStaffAssignment{},
	&models.User{},
}

// ClearAll deletes every row the seeder can create.
func (s *Seeder) ClearAll() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range clearOrder {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// SeedCommunity creates the configured number of users and clans.
func (s *Seeder) SeedCommunity() (*Summary, error) {
	if s.opts.NumUsers < 2 || s.opts.NumClans < 1 {
		return nil, fmt.Errorf("need at least 2 users and 1 clan, got %d users and %d clans", s.opts.NumUsers, s.opts.NumClans)
	}
	if s.opts.NumClans > s.opts.NumUsers {
		return nil, fmt.Errorf("every clan needs its own owner: %d clans for %d users", s.opts.NumClans, s.opts.NumUsers)
	}

	sum := &Summary{}
	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	sum.Users = len(users)
	if err := s.db.Create(&models.SiteStaffAssignment{UserID: users[0].ID, Role: models.SiteRoleAdministrator}).Error; err != nil {
		return nil, fmt.Errorf("grant staff role: %w", err)
	}

	// the first NumClans users own one clan each
	clans := make([]*models.Clan, 0, s.opts.NumClans)
	for i := 0; i < s.opts.NumClans; i++ {
		age := time.Duration(s.rng.Intn(120)) * 24 * time.Hour
		clan, err := s.factory.CreateClan(users[i], func(c *models.Clan) { c.CreatedAt = time.Now().Add(-age) })
		if err != nil {
			return nil, fmt.Errorf("create clan: %w", err)
		}
		clans = append(clans, clan)
	}
	sum.Clans = len(clans)

	roles := []models.ClanRole{models.ClanRoleMember, models.ClanRoleMember, models.ClanRoleMember, models.ClanRoleModerator, models.ClanRoleAdministrator}
	for _, clan := range clans {
		for _, user := range users {
			if user.ID == clan.OwnerUserID {
				continue
			}
			switch roll := s.rng.Float64(); {
			case roll < 0.3:
				if _, err := s.factory.AddMember(clan, user, roles[s.rng.Intn(len(roles))]); err != nil {
					return nil, fmt.Errorf("add member: %w", err)
				}
				sum.Members++
			case roll < 0.4:
				if _, err := s.factory.CreateJoinRequest(clan, user); err != nil {
					return nil, fmt.Errorf("create join request: %w", err)
				}
				sum.JoinRequests++
			}
		}
	}

	// users[0] is staff; the last user gets a ban that becomes appealable in a week
	if _, err := s.factory.CreateUserBan(users[0], users[len(users)-1], 7*24*time.Hour); err != nil {
		return nil, fmt.Errorf("create ban: %w", err)
	}
	sum.Bans++

	if _, err := s.factory.CreateReport(users[1], models.ReportSubjectClan, clans[0].ID); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	if _, err := s.factory.CreateReport(users[0], models.ReportSubjectUser, users[len(users)-1].ID); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	sum.Reports += 2

	middleware.Logger.Info("seeded community",
		slog.Int("users", sum.Users),
		slog.Int("clans", sum.Clans),
		slog.Int("members", sum.Members),
		slog.Int("join_requests", sum.JoinRequests))
	return sum, nil
}
