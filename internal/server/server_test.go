package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"clanhub/internal/config"
	"clanhub/internal/models"
	"clanhub/internal/notifications"
	"clanhub/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testAPI struct {
	t   *testing.T
	app *fiber.App
	db  *gorm.DB
}

func newTestAPI(t *testing.T, rdb *redis.Client) *testAPI {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		JWTSecret:              testSecret,
		AllowedOrigins:         "http://localhost:5173",
		VerificationMinAgeDays: 30,
		VerificationMinMembers: 10,
	}
	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return &testAPI{t: t, app: s.NewApp(), db: db}
}

func (a *testAPI) token(userID uint) string {
	a.t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(a.t, err)
	return signed
}

// do sends a request as userID (anonymous when zero) and decodes the JSON response into out.
func (a *testAPI) do(method, path string, userID uint, body interface{}, out interface{}) int {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+a.token(userID))
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testAPI) expectError(method, path string, userID uint, body interface{}, status int, code, reason string) {
	a.t.Helper()
	var resp models.ErrorResponse
	assert.Equal(a.t, status, a.do(method, path, userID, body, &resp), "%s %s", method, path)
	assert.Equal(a.t, code, resp.Code)
	if reason != "" {
		assert.Equal(a.t, reason, resp.Reason)
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health/live", 0, nil, nil))

	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health/ready", 0, nil, &ready))
	assert.Equal(t, "degraded", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["database"])
	assert.Equal(t, "unavailable", ready.Checks["redis"])
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	api := newTestAPI(t, nil)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/clans", 0, fiber.Map{"name": "Night Owls"}, nil))
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/join-requests/1/accept", 0, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/admin/appeals", 0, nil, nil))
	// public reads stay open
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/clans", 0, nil, nil))
}

func TestBadIDsAndMissingClans(t *testing.T) {
	api := newTestAPI(t, nil)

	api.expectError(http.MethodGet, "/api/clans/abc", 0, nil, http.StatusBadRequest, models.CodeValidation, "")
	api.expectError(http.MethodGet, "/api/clans/999", 0, nil, http.StatusNotFound, models.CodeNotFound, "")
}

func TestJoinRequestLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)
	owner := testutil.CreateUser(t, api.db, models.SiteRoleUser)
	applicant := testutil.CreateUser(t, api.db, models.SiteRoleUser)
	outsider := testutil.CreateUser(t, api.db, models.SiteRoleUser)

	var clan models.Clan
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/clans", owner.ID,
		fiber.Map{"name": "Night Owls", "discord_invite_link": "https://discord.gg/owls"}, &clan))
	assert.Equal(t, 1, clan.MemberCount)

	requests := fmt.Sprintf("/api/clans/%d/join-requests", clan.ID)
	var req models.ClanJoinRequest
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, requests, applicant.ID, nil, &req))
	assert.Equal(t, models.JoinRequestStatusSubmitted, req.Status)

	api.expectError(http.MethodPost, requests, applicant.ID, nil, http.StatusConflict, models.CodeConflict, models.ReasonRequestPending)
	api.expectError(http.MethodPost, requests, owner.ID, nil, http.StatusConflict, models.CodeConflict, models.ReasonAlreadyMember)

	var pending []models.ClanJoinRequest
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, requests, owner.ID, nil, &pending))
	require.Len(t, pending, 1)
	api.expectError(http.MethodGet, requests, outsider.ID, nil, http.StatusForbidden, models.CodePermissionDenied, "")

	accept := fmt.Sprintf("/api/join-requests/%d/accept", req.ID)
	api.expectError(http.MethodPost, accept, outsider.ID, nil, http.StatusForbidden, models.CodePermissionDenied, "")

	var member models.ClanMember
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, accept, owner.ID, nil, &member))
	assert.Equal(t, applicant.ID, member.UserID)
	assert.Equal(t, models.ClanRoleMember, member.Role)

	api.expectError(http.MethodPost, accept, owner.ID, nil, http.StatusConflict, models.CodeInvalidState, "")

	var members []models.ClanMember
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, fmt.Sprintf("/api/clans/%d/members", clan.ID), 0, nil, &members))
	assert.Len(t, members, 2)
}

func TestRejectWithoutReapplication(t *testing.T) {
	api := newTestAPI(t, nil)
	owner := testutil.CreateUser(t, api.db, models.SiteRoleUser)
	applicant := testutil.CreateUser(t, api.db, models.SiteRoleUser)
	clan := testutil.CreateClan(t, api.db, owner)
	requests := fmt.Sprintf("/api/clans/%d/join-requests", clan.ID)

	var req models.ClanJoinRequest
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, requests, applicant.ID, nil, &req))

	var denied models.ClanJoinRequest
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, fmt.Sprintf("/api/join-requests/%d/reject", req.ID), owner.ID,
		fiber.Map{"allow_another_application": false}, &denied))
	assert.Equal(t, models.JoinRequestStatusDenied, denied.Status)
	assert.False(t, denied.AllowAnotherApplication)

	api.expectError(http.MethodPost, requests, applicant.ID, nil, http.StatusForbidden, models.CodePermissionDenied, models.ReasonReapplicationBlocked)

	var blocked []models.ClanJoinRequest
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, requests+"/blocked", owner.ID, nil, &blocked))
	require.Len(t, blocked, 1)

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, fmt.Sprintf("/api/join-requests/%d/unblock", req.ID), owner.ID, nil, nil))
	assert.Equal(t, http.StatusCreated, api.do(http.MethodPost, requests, applicant.ID, nil, nil))
	assert.Equal(t, http.StatusOK, api.do(http.MethodDelete, requests+"/me", applicant.ID, nil, nil))
}

func TestPlatformBanEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := testutil.CreateUser(t, api.db, models.SiteRoleAdministrator)
	moderator := testutil.CreateUser(t, api.db, models.SiteRoleModerator)
	user := testutil.CreateUser(t, api.db, models.SiteRoleUser)
	bystander := testutil.CreateUser(t, api.db, models.SiteRoleUser)

	terms := fiber.Map{"justification": "repeated harassment of members", "permanent": true}
	banPath := func(id uint) string { return fmt.Sprintf("/api/admin/users/%d/ban", id) }

	api.expectError(http.MethodPost, banPath(admin.ID), moderator.ID, terms, http.StatusForbidden, models.CodePermissionDenied, "")
	api.expectError(http.MethodPost, banPath(admin.ID), admin.ID, terms, http.StatusBadRequest, models.CodeSelfTargetingForbidden, models.ReasonSelfBan)
	api.expectError(http.MethodPost, banPath(user.ID), bystander.ID, terms, http.StatusForbidden, models.CodePermissionDenied, "")
	api.expectError(http.MethodPost, banPath(user.ID), admin.ID, fiber.Map{"justification": "short", "permanent": true},
		http.StatusBadRequest, models.CodeValidation, "")

	var ban models.UserBan
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, banPath(user.ID), moderator.ID, terms, &ban))
	assert.Equal(t, user.ID, ban.UserID)
	assert.Equal(t, user.DiscordID, ban.DiscordID)

	api.expectError(http.MethodPost, banPath(user.ID), admin.ID, terms, http.StatusConflict, models.CodeConflict, models.ReasonAlreadyBanned)
	// the banned user is locked out of workflows
	api.expectError(http.MethodPost, "/api/clans", user.ID, fiber.Map{"name": "Outlaws"}, http.StatusForbidden, models.CodePermissionDenied, models.ReasonActorBanned)

	var bans []models.UserBan
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/admin/bans/users", admin.ID, nil, &bans))
	assert.Len(t, bans, 1)

	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, banPath(user.ID), admin.ID, nil, nil))
	api.expectError(http.MethodDelete, banPath(user.ID), admin.ID, nil, http.StatusConflict, models.CodeInvalidState, models.ReasonNotBanned)
}

func TestAppealWindowEnforced(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := testutil.CreateUser(t, api.db, models.SiteRoleAdministrator)
	user := testutil.CreateUser(t, api.db, models.SiteRoleUser)

	var ban models.UserBan
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, fmt.Sprintf("/api/admin/users/%d/ban", user.ID), admin.ID,
		fiber.Map{"justification": "spam links in every clan", "allow_appeal_at": time.Now().Add(48 * time.Hour)}, &ban))

	appeal := fiber.Map{"ban_kind": models.BanKindUser, "ban_id": ban.ID, "statement": "I understand the rules now."}
	api.expectError(http.MethodPost, "/api/appeals", user.ID, appeal, http.StatusConflict, models.CodeInvalidState, models.ReasonAppealWindowClosed)
	api.expectError(http.MethodPost, "/api/appeals", admin.ID, appeal, http.StatusForbidden, models.CodePermissionDenied, "")
}

func TestVerificationEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)
	owner := testutil.CreateUser(t, api.db, models.SiteRoleUser)
	reviewer := testutil.CreateUser(t, api.db, models.SiteRoleModerator)
	clan := testutil.CreateClan(t, api.db, owner,
		testutil.WithAge(40*24*time.Hour), testutil.WithMemberCount(12), testutil.WithInvite("https://discord.gg/owls"))
	young := testutil.CreateClan(t, api.db, owner)

	api.expectError(http.MethodPost, fmt.Sprintf("/api/clans/%d/verification", young.ID), owner.ID, nil,
		http.StatusConflict, models.CodeInvalidState, models.ReasonNotEligible)

	var app models.ClanVerificationApplication
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, fmt.Sprintf("/api/clans/%d/verification", clan.ID), owner.ID, nil, &app))

	var queue []models.ClanVerificationApplication
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/admin/verification", reviewer.ID, nil, &queue))
	require.Len(t, queue, 1)

	approve := fmt.Sprintf("/api/admin/clans/%d/verification/approve", clan.ID)
	api.expectError(http.MethodPost, approve, owner.ID, nil, http.StatusForbidden, models.CodePermissionDenied, "")

	var outcome struct {
		Clan        models.Clan                         `json:"clan"`
		Application *models.ClanVerificationApplication `json:"application"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, approve, reviewer.ID, nil, &outcome))
	assert.Equal(t, models.ApplicationStatusApproved, outcome.Clan.ApplicationStatus)
	require.NotNil(t, outcome.Application)
	assert.Equal(t, app.ID, outcome.Application.ID)
}

func TestSuccessfulTransitionsPublishEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	api := newTestAPI(t, rdb)
	owner := testutil.CreateUser(t, api.db, models.SiteRoleUser)
	reporter := testutil.CreateUser(t, api.db, models.SiteRoleUser)
	clan := testutil.CreateClan(t, api.db, owner)

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, notifications.StaffChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	// rejected calls publish nothing
	api.expectError(http.MethodPost, "/api/reports", reporter.ID,
		fiber.Map{"subject_type": models.ReportSubjectUser, "subject_id": reporter.ID, "reason": "reporting myself"},
		http.StatusBadRequest, models.CodeSelfTargetingForbidden, models.ReasonCannotReportSelf)

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/reports", reporter.ID,
		fiber.Map{"subject_type": models.ReportSubjectClan, "subject_id": clan.ID, "reason": "clan name is a slur"}, nil))

	msgCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(msgCtx)
	require.NoError(t, err)

	var event notifications.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	assert.Equal(t, notifications.EventReportFiled, event.Type)
	assert.Equal(t, reporter.ID, event.ActorID)
}
