package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	values map[string]string
	err    error
}

func (m *memoryRepo) All(context.Context) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *memoryRepo) Put(_ context.Context, values map[string]string, _ time.Time) error {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		want    Settings
		wantErr bool
	}{
		{"empty uses defaults", nil, Defaults(), false},
		{
			"all set",
			map[string]string{"earlyBirdEnabled": "true", "earlyBirdDiscount": "15", "referralEnabled": "1", "referralDiscount": "7"},
			Settings{EarlyBirdEnabled: true, EarlyBirdDiscount: 15, ReferralEnabled: true, ReferralDiscount: 7},
			false,
		},
		{"partial", map[string]string{"referralEnabled": "true"}, Settings{EarlyBirdDiscount: 10, ReferralEnabled: true, ReferralDiscount: 5}, false},
		{"bad bool", map[string]string{"earlyBirdEnabled": "yes please"}, Settings{}, true},
		{"bad int", map[string]string{"referralDiscount": "five"}, Settings{}, true},
		{"out of range", map[string]string{"earlyBirdDiscount": "0"}, Settings{}, true},
		{"above 100", map[string]string{"referralDiscount": "101"}, Settings{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.values)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSetting)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettings_ValuesRoundTrip(t *testing.T) {
	s := Settings{EarlyBirdEnabled: true, EarlyBirdDiscount: 20, ReferralDiscount: 3}

	got, err := Parse(s.Values())

	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestService_UpdateAndGet(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)

	next := Settings{EarlyBirdEnabled: true, EarlyBirdDiscount: 12, ReferralEnabled: true, ReferralDiscount: 6}
	_, err = svc.Update(ctx, next)
	require.NoError(t, err)

	got, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, got)
	assert.Equal(t, "12", repo.values[KeyEarlyBirdDiscount])
}

func TestService_Update_RejectsInvalid(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo)

	_, err := svc.Update(context.Background(), Settings{EarlyBirdDiscount: 0, ReferralDiscount: 5})

	assert.ErrorIs(t, err, ErrInvalidSetting)
	assert.Empty(t, repo.values)
}

func TestService_Get_StoreError(t *testing.T) {
	svc := NewService(&memoryRepo{err: errors.New("db down")})

	_, err := svc.Get(context.Background())
	assert.Error(t, err)
}
