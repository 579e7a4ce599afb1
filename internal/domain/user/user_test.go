package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/nazareth-shop/internal/domain/coupon"
	"github.com/example/nazareth-shop/internal/domain/settings"
	"github.com/example/nazareth-shop/internal/infrastructure/store/mocks"
)

type memoryRepo struct {
	users     map[string]*User
	referrals []Referral
	err       error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]*User)}
}

func (m *memoryRepo) find(match func(*User) bool) (*User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*User, error) {
	return m.find(func(u *User) bool { return u.ID == id })
}

func (m *memoryRepo) GetByKakaoID(_ context.Context, kakaoID string) (*User, error) {
	return m.find(func(u *User) bool { return u.KakaoID == kakaoID })
}

func (m *memoryRepo) GetByReferralCode(_ context.Context, code string) (*User, error) {
	return m.find(func(u *User) bool { return u.ReferralCode == code })
}

func (m *memoryRepo) Create(_ context.Context, u *User) error {
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *memoryRepo) UpdateLogin(_ context.Context, u *User) error {
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *memoryRepo) IncrementReferralCount(_ context.Context, userID string) error {
	m.users[userID].ReferralCount++
	return nil
}

func (m *memoryRepo) CreateReferral(_ context.Context, r *Referral) error {
	m.referrals = append(m.referrals, *r)
	return nil
}

type issueCall struct {
	Prefix  string
	Owner   string
	Percent int
}

type fakeIssuer struct {
	calls []issueCall
	err   error
}

func (f *fakeIssuer) Issue(_ context.Context, prefix, owner string, percent int, ttl time.Duration) (*coupon.Coupon, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, issueCall{prefix, owner, percent})
	return &coupon.Coupon{Code: fmt.Sprintf("%s-%08d", prefix, len(f.calls)), OwnerUserID: owner, Value: percent}, nil
}

type fakeSettings struct{ s settings.Settings }

func (f fakeSettings) Get(context.Context) (settings.Settings, error) { return f.s, nil }

func newTestUserService(st settings.Settings) (*Service, *memoryRepo, *fakeIssuer, *mocks.MockEventStore) {
	repo := newMemoryRepo()
	issuer := &fakeIssuer{}
	es := mocks.NewMockEventStore()
	svc := NewService(repo, &mocks.MockTransactor{}, issuer, fakeSettings{st}, es)
	return svc, repo, issuer, es
}

func enabled() settings.Settings {
	return settings.Settings{EarlyBirdEnabled: true, EarlyBirdDiscount: 10, ReferralEnabled: true, ReferralDiscount: 5}
}

// ============================================
// New User Tests
// ============================================

func TestService_SignIn_NewUser(t *testing.T) {
	svc, repo, issuer, es := newTestUserService(settings.Defaults())

	res, err := svc.SignIn(context.Background(), Profile{KakaoID: "123", Name: "램비", Email: "lamb@example.com"}, "")

	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Len(t, res.User.ReferralCode, coupon.ReferralCodeLength)
	assert.True(t, res.User.ChannelAdded)
	assert.Empty(t, res.Coupons)
	assert.Empty(t, issuer.calls)
	assert.Len(t, repo.users, 1)
	assert.Equal(t, []string{EventUserRegistered}, es.EventTypes())
}

func TestService_SignIn_EmptyNameBecomesUnknown(t *testing.T) {
	svc, _, _, _ := newTestUserService(settings.Defaults())

	res, err := svc.SignIn(context.Background(), Profile{KakaoID: "123"}, "")

	require.NoError(t, err)
	assert.Equal(t, "Unknown", res.User.Name)
}

func TestService_SignIn_MissingKakaoID(t *testing.T) {
	svc, _, _, _ := newTestUserService(settings.Defaults())

	_, err := svc.SignIn(context.Background(), Profile{Name: "x"}, "")
	assert.ErrorIs(t, err, ErrInvalidKakaoID)
}

func TestService_SignIn_EarlyBirdCoupon(t *testing.T) {
	st := settings.Defaults()
	st.EarlyBirdEnabled = true
	st.EarlyBirdDiscount = 15
	svc, _, issuer, _ := newTestUserService(st)

	res, err := svc.SignIn(context.Background(), Profile{KakaoID: "123", Name: "아리"}, "")

	require.NoError(t, err)
	require.Len(t, res.Coupons, 1)
	assert.True(t, strings.HasPrefix(res.Coupons[0].Code, coupon.PrefixEarlyBird))
	assert.Equal(t, []issueCall{{coupon.PrefixEarlyBird, res.User.ID, 15}}, issuer.calls)
}

// ============================================
// Referral Tests
// ============================================

func TestService_SignIn_WithReferral(t *testing.T) {
	svc, repo, issuer, es := newTestUserService(enabled())
	ctx := context.Background()

	referrer, err := svc.SignIn(ctx, Profile{KakaoID: "1", Name: "다비"}, "")
	require.NoError(t, err)

	res, err := svc.SignIn(ctx, Profile{KakaoID: "2", Name: "코코"}, strings.ToLower(referrer.User.ReferralCode))
	require.NoError(t, err)

	assert.Equal(t, referrer.User.ReferralCode, res.User.ReferredBy)
	assert.Equal(t, 1, repo.users[referrer.User.ID].ReferralCount)
	require.Len(t, repo.referrals, 1)
	assert.Equal(t, referrer.User.ID, repo.referrals[0].ReferrerID)
	assert.Equal(t, res.User.ID, repo.referrals[0].ReferredID)

	require.NotNil(t, res.ReferrerReward)
	assert.Equal(t, referrer.User.ID, res.ReferrerReward.OwnerUserID)
	assert.Contains(t, issuer.calls, issueCall{coupon.PrefixReferral, referrer.User.ID, 5})
	assert.Contains(t, es.EventTypes(), EventUserReferred)
}

func TestService_SignIn_ReferralDisabled(t *testing.T) {
	st := enabled()
	st.ReferralEnabled = false
	svc, repo, _, _ := newTestUserService(st)
	ctx := context.Background()

	referrer, err := svc.SignIn(ctx, Profile{KakaoID: "1"}, "")
	require.NoError(t, err)
	res, err := svc.SignIn(ctx, Profile{KakaoID: "2"}, referrer.User.ReferralCode)
	require.NoError(t, err)

	assert.Nil(t, res.ReferrerReward)
	assert.Empty(t, repo.referrals)
	assert.Equal(t, 0, repo.users[referrer.User.ID].ReferralCount)
}

func TestService_SignIn_UnknownReferralCodeIgnored(t *testing.T) {
	svc, repo, _, _ := newTestUserService(enabled())

	res, err := svc.SignIn(context.Background(), Profile{KakaoID: "2"}, "NOPE00")

	require.NoError(t, err)
	assert.Empty(t, res.User.ReferredBy)
	assert.Empty(t, repo.referrals)
}

func TestService_SignIn_RetriesReferralCodeCollision(t *testing.T) {
	svc, _, _, _ := newTestUserService(settings.Defaults())
	ctx := context.Background()
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	svc.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	first, err := svc.SignIn(ctx, Profile{KakaoID: "1"}, "")
	require.NoError(t, err)
	second, err := svc.SignIn(ctx, Profile{KakaoID: "2"}, "")
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first.User.ReferralCode)
	assert.Equal(t, "BBBBBB", second.User.ReferralCode)
}

func TestService_SignIn_CouponFailureAborts(t *testing.T) {
	svc, _, issuer, _ := newTestUserService(enabled())
	issuer.err = errors.New("coupon store down")

	_, err := svc.SignIn(context.Background(), Profile{KakaoID: "1"}, "")
	assert.Error(t, err)
}

// ============================================
// Returning User Tests
// ============================================

func TestService_SignIn_ExistingUserRefreshes(t *testing.T) {
	svc, repo, issuer, es := newTestUserService(enabled())
	ctx := context.Background()

	first, err := svc.SignIn(ctx, Profile{KakaoID: "1", Name: "old"}, "")
	require.NoError(t, err)
	issuedBefore := len(issuer.calls)

	again, err := svc.SignIn(ctx, Profile{KakaoID: "1", Name: "new", Email: "n@example.com", ProfileImage: "img"}, "")
	require.NoError(t, err)

	assert.False(t, again.Created)
	assert.Equal(t, first.User.ID, again.User.ID)
	assert.Equal(t, first.User.ReferralCode, again.User.ReferralCode)
	stored := repo.users[first.User.ID]
	assert.Equal(t, "new", stored.Name)
	assert.Equal(t, "n@example.com", stored.Email)
	assert.Equal(t, "img", stored.ProfileImage)
	assert.True(t, stored.ChannelAdded)
	assert.Len(t, issuer.calls, issuedBefore)
	assert.Equal(t, EventUserLoggedIn, es.EventTypes()[len(es.EventTypes())-1])
}

func TestService_SignIn_RepositoryError(t *testing.T) {
	svc, repo, _, _ := newTestUserService(settings.Defaults())
	repo.err = errors.New("db down")

	_, err := svc.SignIn(context.Background(), Profile{KakaoID: "1"}, "")
	assert.Error(t, err)
}
