package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/nazareth-shop/internal/domain/coupon"
	"github.com/example/nazareth-shop/internal/domain/settings"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
	"github.com/example/nazareth-shop/internal/metrics"
)

const (
	AggregateType = "User"

	maxReferralCodeAttempts = 5
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrInvalidKakaoID    = errors.New("kakao id is required")
	ErrReferralCodeTaken = errors.New("could not allocate a referral code")
)

// User is a storefront account created through Kakao sign-in.
type User struct {
	ID             string     `json:"id"`
	KakaoID        string     `json:"kakaoId"`
	Name           string     `json:"name"`
	Email          string     `json:"email,omitempty"`
	ProfileImage   string     `json:"profileImage,omitempty"`
	ReferralCode   string     `json:"referralCode"`
	ReferredBy     string     `json:"referredBy,omitempty"`
	ReferralCount  int        `json:"referralCount"`
	ChannelAdded   bool       `json:"kakaoChannelAdded"`
	ChannelAddedAt *time.Time `json:"kakaoChannelAddedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLoginAt    time.Time  `json:"lastLoginAt"`
}

type Referral struct {
	ID         string    `json:"id"`
	ReferrerID string    `json:"referrerId"`
	ReferredID string    `json:"referredId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Profile is the identity returned by the OAuth provider.
type Profile struct {
	KakaoID      string
	Name         string
	Email        string
	ProfileImage string
}

// Repository persists users. Implementations take the transaction from ctx.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByKakaoID(ctx context.Context, kakaoID string) (*User, error)
	GetByReferralCode(ctx context.Context, code string) (*User, error)
	Create(ctx context.Context, u *User) error
	UpdateLogin(ctx context.Context, u *User) error
	IncrementReferralCount(ctx context.Context, userID string) error
	CreateReferral(ctx context.Context, r *Referral) error
}

type CouponIssuer interface {
	Issue(ctx context.Context, prefix, ownerUserID string, percent int, ttl time.Duration) (*coupon.Coupon, error)
}

type SettingsReader interface {
	Get(ctx context.Context) (settings.Settings, error)
}

type Service struct {
	repo       Repository
	tx         store.Transactor
	coupons    CouponIssuer
	settings   SettingsReader
	eventStore store.EventStoreInterface
	now        func() time.Time
	newCode    func() (string, error)
}

func NewService(repo Repository, tx store.Transactor, coupons CouponIssuer, st SettingsReader, es store.EventStoreInterface) *Service {
	return &Service{
		repo:       repo,
		tx:         tx,
		coupons:    coupons,
		settings:   st,
		eventStore: es,
		now:        time.Now,
		newCode:    func() (string, error) { return coupon.RandomCode(coupon.ReferralCodeLength) },
	}
}

// SignInResult reports what a sign-in created.
type SignInResult struct {
	User           *User           `json:"user"`
	Created        bool            `json:"created"`
	Coupons        []coupon.Coupon `json:"coupons,omitempty"`
	ReferrerReward *coupon.Coupon  `json:"-"`
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// SignIn refreshes an existing user or registers a new one together with
// its signup coupons and referral, all in one transaction.
func (s *Service) SignIn(ctx context.Context, p Profile, referralCode string) (*SignInResult, error) {
	if strings.TrimSpace(p.KakaoID) == "" {
		return nil, ErrInvalidKakaoID
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = "Unknown"
	}

	var result *SignInResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByKakaoID(ctx, p.KakaoID)
		switch {
		case err == nil:
			result, err = s.login(ctx, existing, p)
			return err
		case errors.Is(err, ErrUserNotFound):
			result, err = s.register(ctx, p, referralCode)
			return err
		default:
			return fmt.Errorf("load user: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	kind := "returning"
	if result.Created {
		kind = "new"
		if result.User.ReferredBy != "" {
			kind = "referred"
		}
	}
	metrics.SignupsTotal.WithLabelValues(kind).Inc()
	return result, nil
}

func (s *Service) login(ctx context.Context, u *User, p Profile) (*SignInResult, error) {
	now := s.now().UTC()
	u.Name = p.Name
	u.Email = p.Email
	u.ProfileImage = p.ProfileImage
	u.LastLoginAt = now
	u.ChannelAdded = true
	u.ChannelAddedAt = &now

	if err := s.repo.UpdateLogin(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if _, err := s.eventStore.Append(ctx, u.ID, AggregateType, EventUserLoggedIn, UserLoggedIn{
		UserID:   u.ID,
		LoggedAt: now,
	}); err != nil {
		return nil, err
	}
	return &SignInResult{User: u}, nil
}

func (s *Service) register(ctx context.Context, p Profile, referralCode string) (*SignInResult, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	code, err := s.allocateReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &User{
		ID:             uuid.New().String(),
		KakaoID:        p.KakaoID,
		Name:           p.Name,
		Email:          p.Email,
		ProfileImage:   p.ProfileImage,
		ReferralCode:   code,
		ChannelAdded:   true,
		ChannelAddedAt: &now,
		CreatedAt:      now,
		LastLoginAt:    now,
	}

	referrer, err := s.findReferrer(ctx, referralCode)
	if err != nil {
		return nil, err
	}
	if referrer != nil {
		u.ReferredBy = referrer.ReferralCode
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	result := &SignInResult{User: u, Created: true}

	if cfg.EarlyBirdEnabled {
		c, err := s.coupons.Issue(ctx, coupon.PrefixEarlyBird, u.ID, cfg.EarlyBirdDiscount, coupon.SignupCouponTTL)
		if err != nil {
			return nil, fmt.Errorf("issue early-bird coupon: %w", err)
		}
		result.Coupons = append(result.Coupons, *c)
	}

	if referrer != nil && cfg.ReferralEnabled {
		reward, err := s.recordReferral(ctx, referrer, u, cfg.ReferralDiscount, now)
		if err != nil {
			return nil, err
		}
		result.ReferrerReward = reward
	}

	codes := make([]string, 0, len(result.Coupons))
	for _, c := range result.Coupons {
		codes = append(codes, c.Code)
	}
	if _, err := s.eventStore.Append(ctx, u.ID, AggregateType, EventUserRegistered, UserRegistered{
		UserID:       u.ID,
		KakaoID:      u.KakaoID,
		Name:         u.Name,
		ReferralCode: u.ReferralCode,
		ReferredBy:   u.ReferredBy,
		Coupons:      codes,
		CreatedAt:    now,
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// findReferrer resolves a referral code; unknown codes are ignored.
func (s *Service) findReferrer(ctx context.Context, code string) (*User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	referrer, err := s.repo.GetByReferralCode(ctx, code)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load referrer: %w", err)
	}
	return referrer, nil
}

func (s *Service) recordReferral(ctx context.Context, referrer, referred *User, discount int, now time.Time) (*coupon.Coupon, error) {
	if referrer.ID == referred.ID {
		return nil, nil
	}
	if err := s.repo.CreateReferral(ctx, &Referral{
		ID:         uuid.New().String(),
		ReferrerID: referrer.ID,
		ReferredID: referred.ID,
		CreatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("create referral: %w", err)
	}
	if err := s.repo.IncrementReferralCount(ctx, referrer.ID); err != nil {
		return nil, fmt.Errorf("increment referral count: %w", err)
	}

	reward, err := s.coupons.Issue(ctx, coupon.PrefixReferral, referrer.ID, discount, coupon.SignupCouponTTL)
	if err != nil {
		return nil, fmt.Errorf("issue referral coupon: %w", err)
	}

	if _, err := s.eventStore.Append(ctx, referrer.ID, AggregateType, EventUserReferred, UserReferred{
		ReferrerID: referrer.ID,
		ReferredID: referred.ID,
		CouponCode: reward.Code,
		ReferredAt: now,
	}); err != nil {
		return nil, err
	}
	return reward, nil
}

// allocateReferralCode picks a 6-character code not yet in use.
func (s *Service) allocateReferralCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxReferralCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		_, err = s.repo.GetByReferralCode(ctx, code)
		if errors.Is(err, ErrUserNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
	}
	return "", ErrReferralCodeTaken
}
