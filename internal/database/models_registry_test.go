package database

import (
	"testing"

	modelspkg "clanhub/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesModerationRecords(t *testing.T) {
	var hasAppeal, hasMemberBan bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.BanAppeal:
			hasAppeal = true
		case *modelspkg.ClanMemberBan:
			hasMemberBan = true
		}
	}
	require.True(t, hasAppeal, "PersistentModels should include BanAppeal")
	require.True(t, hasMemberBan, "PersistentModels should include ClanMemberBan")
}
