package api

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/nazareth-shop/internal/api/middleware"
	"github.com/example/nazareth-shop/internal/auth"
	"github.com/example/nazareth-shop/internal/domain/user"
)

const (
	stateCookieTTL = 10 * time.Minute
	adminSubject   = "admin"
)

// Kakao OAuth

// KakaoLogin redirects to the Kakao consent screen. The CSRF state and an
// optional referral code ride along in a short-lived cookie.
func (s *Server) KakaoLogin(w http.ResponseWriter, r *http.Request) {
	state, err := newState()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	v := url.Values{}
	v.Set("state", state)
	if ref := strings.TrimSpace(r.URL.Query().Get("ref")); ref != "" {
		v.Set("ref", ref)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookieName,
		Value:    v.Encode(),
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.Options.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.OAuth.AuthCodeURL(state), http.StatusFound)
}

// KakaoCallback finishes the flow: it signs the user in (registering them on
// first visit), sets the session cookie and returns to the storefront.
func (s *Server) KakaoCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	http.SetCookie(w, auth.ExpiredCookie(auth.StateCookieName, s.Options.SecureCookies))

	code := q.Get("code")
	if code == "" {
		s.redirectHome(w, r, "no_code")
		return
	}

	saved, ok := readStateCookie(r)
	if !ok || subtle.ConstantTimeCompare([]byte(saved.Get("state")), []byte(q.Get("state"))) != 1 {
		s.logger.Warn("oauth state mismatch")
		s.redirectHome(w, r, "invalid_state")
		return
	}

	token, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("kakao token exchange failed", zap.Error(err))
		s.redirectHome(w, r, "auth_failed")
		return
	}
	profile, err := s.OAuth.FetchProfile(ctx, token)
	if err != nil {
		s.logger.Error("kakao profile request failed", zap.Error(err))
		s.redirectHome(w, r, "auth_failed")
		return
	}

	result, err := s.Users.SignIn(ctx, profile, saved.Get("ref"))
	if err != nil {
		s.logger.Error("sign in failed", zap.String("kakao_id", profile.KakaoID), zap.Error(err))
		s.redirectHome(w, r, "auth_failed")
		return
	}

	if err := s.setSession(w, result.User.ID, result.User.KakaoID, auth.RoleCustomer); err != nil {
		s.logger.Error("issue session failed", zap.Error(err))
		s.redirectHome(w, r, "auth_failed")
		return
	}
	s.logger.Info("user signed in",
		zap.String("user_id", result.User.ID),
		zap.Bool("created", result.Created),
		zap.Int("coupons", len(result.Coupons)),
	)
	s.redirectHome(w, r, "")
}

func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request, errCode string) {
	target := strings.TrimRight(s.Options.PublicURL, "/") + "/"
	if errCode != "" {
		target += "?error=" + url.QueryEscape(errCode)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func readStateCookie(r *http.Request) (url.Values, bool) {
	c, err := r.Cookie(auth.StateCookieName)
	if err != nil {
		return nil, false
	}
	v, err := url.ParseQuery(c.Value)
	if err != nil || v.Get("state") == "" {
		return nil, false
	}
	return v, true
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *Server) setSession(w http.ResponseWriter, userID, kakaoID, role string) error {
	token, _, err := s.Tokens.IssueSession(userID, kakaoID, role)
	if err != nil {
		return err
	}
	http.SetCookie(w, auth.SessionCookie(token, s.Tokens.SessionTTL(), s.Options.SecureCookies))
	return nil
}

// Session

// MeResponse is the current session. User is null for admin sessions.
type MeResponse struct {
	User  *user.User `json:"user"`
	Admin bool       `json:"admin,omitempty"`
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, MeResponse{})
		return
	}
	if claims.IsAdmin() {
		respondJSON(w, http.StatusOK, MeResponse{Admin: true})
		return
	}

	u, err := s.Users.Get(r.Context(), claims.UserID)
	if errors.Is(err, user.ErrUserNotFound) {
		respondJSON(w, http.StatusUnauthorized, MeResponse{})
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, MeResponse{User: u})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ExpiredCookie(auth.SessionCookieName, s.Options.SecureCookies))
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type AdminLoginRequest struct {
	Password string `json:"password"`
}

// AdminLogin checks the password against the configured bcrypt hash.
func (s *Server) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := auth.CheckAdminPassword(req.Password, s.Options.AdminPasswordHash); err != nil {
		s.logger.Warn("admin login rejected", zap.Error(err))
		s.respondError(w, r, err)
		return
	}
	if err := s.setSession(w, adminSubject, "", auth.RoleAdmin); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Health

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(r.Context()); err != nil {
			s.logger.Error("health check failed", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
