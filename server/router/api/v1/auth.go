package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/konusmate/mate/internal/errs"
	"github.com/konusmate/mate/internal/profile"
	"github.com/konusmate/mate/store"
)

// userContextKey is where the middleware stashes the authenticated user.
const userContextKey = "mate/user"

type AuthService struct {
	Store   *store.Store
	Secret  string
	Profile *profile.Profile
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"` // username or email
	Password string `json:"password"`
}

type UserResponse struct {
	ID          int32      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserResponse `json:"user"`
}

func toUserResponse(user *store.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

func (s *AuthService) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.Wrap(errs.ErrValidation, err, "malformed request body"))
	}
	if err := validateUsername(req.Username); err != nil {
		return respondError(c, err)
	}
	if err := validatePassword(req.Password); err != nil {
		return respondError(c, err)
	}
	if !strings.Contains(req.Email, "@") {
		return respondError(c, errs.Newf(errs.ErrValidation, "invalid email address"))
	}

	if existing, err := s.Store.GetUser(ctx, &store.FindUser{Username: &req.Username}); err != nil {
		return respondError(c, err)
	} else if existing != nil {
		return respondError(c, errs.Newf(errs.ErrValidation, "username already taken"))
	}
	if existing, err := s.Store.GetUser(ctx, &store.FindUser{Email: &req.Email}); err != nil {
		return respondError(c, err)
	} else if existing != nil {
		return respondError(c, errs.Newf(errs.ErrValidation, "email already registered"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, err)
	}

	user, err := s.Store.CreateUser(ctx, &store.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		IsActive:     true,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

func (s *AuthService) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, errs.Wrap(errs.ErrValidation, err, "malformed request body"))
	}

	find := &store.FindUser{Username: &req.Username}
	if strings.Contains(req.Username, "@") {
		find = &store.FindUser{Email: &req.Username}
	}
	user, err := s.Store.GetUser(ctx, find)
	if err != nil {
		return respondError(c, err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return respondError(c, errs.Newf(errs.ErrAuth, "invalid credentials"))
	}
	if !user.IsActive {
		return respondError(c, errs.Newf(errs.ErrForbidden, "account is disabled"))
	}

	ttl := s.Profile.TokenTTL()
	token, err := s.signToken(user.ID, ttl)
	if err != nil {
		return respondError(c, err)
	}

	now := time.Now()
	clientIP := c.RealIP()
	if err := s.Store.UpdateUser(ctx, &store.UpdateUser{
		ID:          user.ID,
		LastLoginAt: &now,
		LastLoginIP: &clientIP,
	}); err != nil {
		return respondError(c, err)
	}
	user.LastLoginAt = &now

	return c.JSON(http.StatusOK, &LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		User:        toUserResponse(user),
	})
}

func (s *AuthService) Me(c echo.Context) error {
	user := currentUser(c)
	if user == nil {
		return respondError(c, errs.Newf(errs.ErrAuth, "authentication required"))
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Middleware authenticates the bearer token and loads the account. Disabled
// accounts are rejected with 403 even when the token is valid.
func (s *AuthService) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return respondError(c, errs.Newf(errs.ErrAuth, "missing bearer token"))
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		userID, err := s.verifyToken(tokenString)
		if err != nil {
			return respondError(c, err)
		}

		user, err := s.Store.GetUser(c.Request().Context(), &store.FindUser{ID: &userID})
		if err != nil {
			return respondError(c, err)
		}
		if user == nil {
			return respondError(c, errs.Newf(errs.ErrAuth, "unknown user"))
		}
		if !user.IsActive {
			return respondError(c, errs.Newf(errs.ErrForbidden, "account is disabled"))
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

func (s *AuthService) signToken(userID int32, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(int64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString([]byte(s.Secret))
}

func (s *AuthService) verifyToken(tokenString string) (int32, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.Newf(errs.ErrAuth, "unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.Secret), nil
	})
	if err != nil || !token.Valid {
		return 0, errs.Wrap(errs.ErrAuth, err, "invalid or expired token")
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return 0, errs.Newf(errs.ErrAuth, "malformed token claims")
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil {
		return 0, errs.Wrap(errs.ErrAuth, err, "malformed token subject")
	}
	return int32(userID), nil
}

// currentUser returns the authenticated user set by the middleware.
func currentUser(c echo.Context) *store.User {
	user, _ := c.Get(userContextKey).(*store.User)
	return user
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return errs.Newf(errs.ErrValidation, "username must be 3-50 characters")
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return errs.Newf(errs.ErrValidation, "username may only contain letters, digits, underscores and hyphens")
		}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 50 {
		return errs.Newf(errs.ErrValidation, "password must be 6-50 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errs.Newf(errs.ErrValidation, "password must contain upper, lower and digit characters")
	}
	return nil
}
