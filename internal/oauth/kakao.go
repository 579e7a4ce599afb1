package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/nazareth-shop/internal/domain/user"
)

var (
	ErrExchangeFailed = errors.New("kakao token exchange failed")
	ErrProfileFailed  = errors.New("kakao profile request failed")
)

const (
	DefaultScope    = "profile_nickname,profile_image,account_email"
	unknownNickname = "Unknown"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	ProfileURL   string
	// ChannelID adds the channel-consent terms to the authorize URL when set.
	ChannelID string
	Timeout   time.Duration
}

// KakaoClient runs the authorization code flow against Kakao.
type KakaoClient struct {
	cfg        Config
	httpClient *http.Client
}

func NewKakaoClient(cfg Config) *KakaoClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KakaoClient{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

// AuthCodeURL builds the authorize redirect carrying state.
func (c *KakaoClient) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", DefaultScope)
	if state != "" {
		q.Set("state", state)
	}
	if c.cfg.ChannelID != "" {
		q.Set("service_terms", "channel")
		q.Set("channel_public_id", c.cfg.ChannelID)
	}
	return c.cfg.AuthURL + "?" + q.Encode()
}

// Exchange trades an authorization code for an access token.
func (c *KakaoClient) Exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("redirect_uri", c.cfg.RedirectURI)
	form.Set("code", code)
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.doJSON(req, &tok); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrExchangeFailed)
	}
	return tok.AccessToken, nil
}

type kakaoUser struct {
	ID json.Number `json:"id"`
	Properties struct {
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	} `json:"properties"`
	KakaoAccount struct {
		Email string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// FetchProfile reads /v2/user/me with the access token.
func (c *KakaoClient) FetchProfile(ctx context.Context, accessToken string) (user.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ProfileURL, nil)
	if err != nil {
		return user.Profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var ku kakaoUser
	if err := c.doJSON(req, &ku); err != nil {
		return user.Profile{}, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}
	if ku.ID == "" {
		return user.Profile{}, fmt.Errorf("%w: missing id", ErrProfileFailed)
	}
	if _, err := strconv.ParseInt(ku.ID.String(), 10, 64); err != nil {
		return user.Profile{}, fmt.Errorf("%w: invalid id %q", ErrProfileFailed, ku.ID)
	}

	return user.Profile{
		KakaoID:      ku.ID.String(),
		Name:         firstNonEmpty(ku.Properties.Nickname, ku.KakaoAccount.Profile.Nickname, unknownNickname),
		Email:        ku.KakaoAccount.Email,
		ProfileImage: firstNonEmpty(ku.Properties.ProfileImage, ku.KakaoAccount.Profile.ProfileImageURL),
	}, nil
}

func (c *KakaoClient) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(out)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
