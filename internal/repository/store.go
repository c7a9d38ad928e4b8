// Package repository provides data access for the clan moderation core.
package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store groups one repository per aggregate. Repositories obtained from the
// Store passed to a WithTransaction callback share that transaction.
type Store interface {
	Membership() MembershipStore
	Clans() ClanRepository
	JoinRequests() JoinRequestRepository
	Bans() BanRepository
	Appeals() AppealRepository
	Verifications() VerificationRepository
	Reports() ReportRepository

	// WithTransaction runs fn atomically. Any error returned by fn rolls the
	// transaction back and is returned unchanged.
	WithTransaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Membership() MembershipStore           { return NewMembershipStore(s.db) }
func (s *gormStore) Clans() ClanRepository                 { return NewClanRepository(s.db) }
func (s *gormStore) JoinRequests() JoinRequestRepository   { return NewJoinRequestRepository(s.db) }
func (s *gormStore) Bans() BanRepository                   { return NewBanRepository(s.db) }
func (s *gormStore) Appeals() AppealRepository             { return NewAppealRepository(s.db) }
func (s *gormStore) Verifications() VerificationRepository { return NewVerificationRepository(s.db) }
func (s *gormStore) Reports() ReportRepository             { return NewReportRepository(s.db) }

func (s *gormStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
	return translate(err)
}

// forUpdate takes a row lock on postgres. The sqlite driver drops the clause
// and relies on its single writer instead.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
