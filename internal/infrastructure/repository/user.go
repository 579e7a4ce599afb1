package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/nazareth-shop/internal/domain/user"
	"github.com/example/nazareth-shop/internal/infrastructure/store"
)

const userColumns = `id, kakao_id, name, email, profile_image, referral_code, referred_by,
	referral_count, channel_added, channel_added_at, created_at, last_login_at`

type userRow struct {
	ID             string         `db:"id"`
	KakaoID        string         `db:"kakao_id"`
	Name           string         `db:"name"`
	Email          sql.NullString `db:"email"`
	ProfileImage   sql.NullString `db:"profile_image"`
	ReferralCode   string         `db:"referral_code"`
	ReferredBy     sql.NullString `db:"referred_by"`
	ReferralCount  int            `db:"referral_count"`
	ChannelAdded   bool           `db:"channel_added"`
	ChannelAddedAt sql.NullInt64  `db:"channel_added_at"`
	CreatedAt      int64          `db:"created_at"`
	LastLoginAt    int64          `db:"last_login_at"`
}

func (r userRow) toUser() *user.User {
	return &user.User{
		ID:             r.ID,
		KakaoID:        r.KakaoID,
		Name:           r.Name,
		Email:          r.Email.String,
		ProfileImage:   r.ProfileImage.String,
		ReferralCode:   r.ReferralCode,
		ReferredBy:     r.ReferredBy.String,
		ReferralCount:  r.ReferralCount,
		ChannelAdded:   r.ChannelAdded,
		ChannelAddedAt: store.TimePtr(r.ChannelAddedAt),
		CreatedAt:      store.FromMillis(r.CreatedAt),
		LastLoginAt:    store.FromMillis(r.LastLoginAt),
	}
}

type UserRepository struct {
	db *store.DB
}

func NewUserRepository(db *store.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) GetByKakaoID(ctx context.Context, kakaoID string) (*user.User, error) {
	return r.getBy(ctx, "kakao_id", kakaoID)
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*user.User, error) {
	return r.getBy(ctx, "referral_code", code)
}

func (r *UserRepository) getBy(ctx context.Context, column, value string) (*user.User, error) {
	var row userRow
	err := r.db.Get(ctx, &row, "SELECT "+userColumns+" FROM users WHERE "+column+" = ?", value)
	if errors.Is(err, store.ErrNotFound) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toUser(), nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	n, err := r.db.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		u.ID, u.KakaoID, u.Name, nullString(u.Email), nullString(u.ProfileImage), u.ReferralCode,
		nullString(u.ReferredBy), u.ReferralCount, u.ChannelAdded, store.NullMillis(u.ChannelAddedAt),
		store.ToMillis(u.CreatedAt), store.ToMillis(u.LastLoginAt),
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrUserExists
	}
	return nil
}

func (r *UserRepository) UpdateLogin(ctx context.Context, u *user.User) error {
	n, err := r.db.Exec(ctx,
		`UPDATE users SET name = ?, email = ?, profile_image = ?, channel_added = ?, channel_added_at = ?, last_login_at = ?
		 WHERE id = ?`,
		u.Name, nullString(u.Email), nullString(u.ProfileImage), u.ChannelAdded,
		store.NullMillis(u.ChannelAddedAt), store.ToMillis(u.LastLoginAt), u.ID,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) IncrementReferralCount(ctx context.Context, userID string) error {
	n, err := r.db.Exec(ctx, "UPDATE users SET referral_count = referral_count + 1 WHERE id = ?", userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) CreateReferral(ctx context.Context, ref *user.Referral) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO referrals (id, referrer_id, referred_id, created_at) VALUES (?, ?, ?, ?)",
		ref.ID, ref.ReferrerID, ref.ReferredID, store.ToMillis(ref.CreatedAt))
	return err
}

var _ user.Repository = (*UserRepository)(nil)
