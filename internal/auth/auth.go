package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const userContextKey contextKey = "user"

const issuer = "zonewatch"

// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrMissingSecret is returned when authentication is required but no signing
// secret is configured.
var ErrMissingSecret = errors.New("AUTH_JWT_SECRET must be set when AUTH_REQUIRED is true")

// User is an operator account.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PasswordHash string `json:"-"`
}

// Config holds authentication configuration
type Config struct {
	JWTSecret     string
	TokenDuration time.Duration
	// Required protects mutating routes with bearer tokens.
	Required bool
	Users    []User
}

// LoadConfigFromEnv loads auth config from environment variables and hashes
// the operator passwords.
func LoadConfigFromEnv() (Config, error) {
	required := false
	if v := os.Getenv("AUTH_REQUIRED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUTH_REQUIRED: %w", err)
		}
		required = b
	}

	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		if required {
			return Config{}, ErrMissingSecret
		}
		secret = "change-this-secret" // Default for optional auth
	}

	adminHash, err := HashPassword(envOr("ADMIN_PASSWORD", "admin123"))
	if err != nil {
		return Config{}, fmt.Errorf("hash admin password: %w", err)
	}
	operatorHash, err := HashPassword(envOr("OPERATOR_PASSWORD", "operator123"))
	if err != nil {
		return Config{}, fmt.Errorf("hash operator password: %w", err)
	}

	return Config{
		JWTSecret:     secret,
		TokenDuration: 24 * time.Hour,
		Required:      required,
		Users: []User{
			{ID: "1", Username: "admin", Email: "admin@surveillance.com", FirstName: "Admin", LastName: "System", PasswordHash: adminHash},
			{ID: "2", Username: "operator", Email: "operator@surveillance.com", FirstName: "Operator", LastName: "User", PasswordHash: operatorHash},
		},
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Lookup returns the user with the given username.
func (c Config) Lookup(username string) (User, bool) {
	for _, u := range c.Users {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

// Authenticate checks credentials against the configured users.
func (c Config) Authenticate(username, password string) (User, error) {
	u, ok := c.Lookup(username)
	if !ok || !CheckPassword(password, u.PasswordHash) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Claims represents the JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT token
func GenerateToken(user User, secret string, duration time.Duration) (string, error) {
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken validates a JWT token and returns its claims
func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password with a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Middleware rejects requests without a valid bearer token. Unauthorized
// responses are written by deny.
func Middleware(config Config, deny func(w http.ResponseWriter, message string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := BearerToken(r)
			if !ok {
				deny(w, "Authorization header required")
				return
			}

			claims, err := ValidateToken(tokenString, config.JWTSecret)
			if err != nil {
				deny(w, "Invalid or expired token")
				return
			}

			user, ok := config.Lookup(claims.Username)
			if !ok || user.ID != claims.UserID {
				deny(w, "Unknown user")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext extracts the authenticated user from the request context
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userContextKey).(User)
	return u, ok
}
