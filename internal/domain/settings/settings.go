package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	KeyEarlyBirdEnabled  = "earlyBirdEnabled"
	KeyEarlyBirdDiscount = "earlyBirdDiscount"
	KeyReferralEnabled   = "referralEnabled"
	KeyReferralDiscount  = "referralDiscount"
)

var ErrInvalidSetting = errors.New("invalid setting")

// Settings are the admin-editable signup coupon switches.
type Settings struct {
	EarlyBirdEnabled  bool `json:"earlyBirdEnabled"`
	EarlyBirdDiscount int  `json:"earlyBirdDiscount"`
	ReferralEnabled   bool `json:"referralEnabled"`
	ReferralDiscount  int  `json:"referralDiscount"`
}

func Defaults() Settings {
	return Settings{
		EarlyBirdEnabled:  false,
		EarlyBirdDiscount: 10,
		ReferralEnabled:   false,
		ReferralDiscount:  5,
	}
}

func (s Settings) Validate() error {
	if s.EarlyBirdDiscount < 1 || s.EarlyBirdDiscount > 100 {
		return fmt.Errorf("%w: %s must be between 1 and 100", ErrInvalidSetting, KeyEarlyBirdDiscount)
	}
	if s.ReferralDiscount < 1 || s.ReferralDiscount > 100 {
		return fmt.Errorf("%w: %s must be between 1 and 100", ErrInvalidSetting, KeyReferralDiscount)
	}
	return nil
}

// Parse builds Settings from stored strings. Missing keys take defaults.
func Parse(values map[string]string) (Settings, error) {
	s := Defaults()
	var err error

	if v, ok := values[KeyEarlyBirdEnabled]; ok {
		if s.EarlyBirdEnabled, err = strconv.ParseBool(v); err != nil {
			return Settings{}, fmt.Errorf("%w: %s=%q", ErrInvalidSetting, KeyEarlyBirdEnabled, v)
		}
	}
	if v, ok := values[KeyEarlyBirdDiscount]; ok {
		if s.EarlyBirdDiscount, err = strconv.Atoi(v); err != nil {
			return Settings{}, fmt.Errorf("%w: %s=%q", ErrInvalidSetting, KeyEarlyBirdDiscount, v)
		}
	}
	if v, ok := values[KeyReferralEnabled]; ok {
		if s.ReferralEnabled, err = strconv.ParseBool(v); err != nil {
			return Settings{}, fmt.Errorf("%w: %s=%q", ErrInvalidSetting, KeyReferralEnabled, v)
		}
	}
	if v, ok := values[KeyReferralDiscount]; ok {
		if s.ReferralDiscount, err = strconv.Atoi(v); err != nil {
			return Settings{}, fmt.Errorf("%w: %s=%q", ErrInvalidSetting, KeyReferralDiscount, v)
		}
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Values is the stored key/value form.
func (s Settings) Values() map[string]string {
	return map[string]string{
		KeyEarlyBirdEnabled:  strconv.FormatBool(s.EarlyBirdEnabled),
		KeyEarlyBirdDiscount: strconv.Itoa(s.EarlyBirdDiscount),
		KeyReferralEnabled:   strconv.FormatBool(s.ReferralEnabled),
		KeyReferralDiscount:  strconv.Itoa(s.ReferralDiscount),
	}
}

type Repository interface {
	All(ctx context.Context) (map[string]string, error)
	Put(ctx context.Context, values map[string]string, at time.Time) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context) (Settings, error) {
	values, err := s.repo.All(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return Parse(values)
}

// Update validates and stores all four settings.
func (s *Service) Update(ctx context.Context, next Settings) (Settings, error) {
	if err := next.Validate(); err != nil {
		return Settings{}, err
	}
	if err := s.repo.Put(ctx, next.Values(), time.Now()); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return next, nil
}
