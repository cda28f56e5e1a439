package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"raffle/domain/entities"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

type contextKey string

const accountContextKey contextKey = "account"

// Claims is the bearer token payload. Tokens are issued by the login service;
// this service only verifies them.
type Claims struct {
	ID int64 `json:"id"`
	jwt.RegisteredClaims
}

// AccountLookup resolves the account named by a verified token
type AccountLookup interface {
	GetProfile(ctx context.Context, userID int64) (*entities.Account, error)
}

// Authenticator verifies HS256 bearer tokens and loads the caller's current account,
// so role changes apply without reissuing tokens
type Authenticator struct {
	secret   []byte
	accounts AccountLookup
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(secret string, accounts AccountLookup) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		accounts: accounts,
	}
}

// Middleware rejects requests without a valid token (401) or whose account
// no longer exists (403)
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		claims, err := a.verify(token)
		if err != nil {
			log.WithError(err).Debug("Rejected bearer token")
			writeError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		account, err := a.accounts.GetProfile(r.Context(), claims.ID)
		if err != nil {
			if errors.Is(err, entities.ErrNotFound) {
				writeError(w, "Account not found", http.StatusForbidden)
				return
			}
			writeLedgerError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), accountContextKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ID <= 0 {
		return nil, errors.New("token carries no account id")
	}
	return claims, nil
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequireAdmin allows only admin accounts through
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := AccountFromContext(r.Context())
		if account == nil || !account.IsAdmin() {
			writeError(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AccountFromContext returns the authenticated account, or nil outside the auth middleware
func AccountFromContext(ctx context.Context) *entities.Account {
	account, _ := ctx.Value(accountContextKey).(*entities.Account)
	return account
}
