package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	CtxCartIDKey = "cart_id" // string (uuid)

	CartTokenHeader = "X-Cart-Token"
	CartTokenCookie = "cart_token"
)

var ErrInvalidCartToken = errors.New("invalid cart token")

// CartTokenIssuer はカートIDを署名付きトークンにする。
// ユーザー認証ではなく、どのカートスロットかを示すだけ。
type CartTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewCartTokenIssuer(secret string, ttl time.Duration, secureCookie bool) *CartTokenIssuer {
	return &CartTokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secureCookie,
		now:    time.Now,
	}
}

func (i *CartTokenIssuer) Issue(cartID string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   cartID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse は署名と期限を検証してカートIDを返す。
func (i *CartTokenIssuer) Parse(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", ErrInvalidCartToken
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidCartToken
	}
	return claims.Subject, nil
}

// CartToken はリクエストのカートを特定してcontextに入れる。
// トークンが無い/不正/期限切れなら新しいカートを発行して返す。
func CartToken(issuer *CartTokenIssuer, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := readCartToken(c.Request())
			if raw != "" {
				if cartID, err := issuer.Parse(raw); err == nil {
					c.Set(CtxCartIDKey, cartID)
					return next(c)
				}
				log.Debug("cart token rejected, issuing new cart")
			}

			cartID := uuid.NewString()
			signed, exp, err := issuer.Issue(cartID)
			if err != nil {
				log.Error("issue cart token", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
			}

			c.Response().Header().Set(CartTokenHeader, signed)
			c.SetCookie(&http.Cookie{
				Name:     CartTokenCookie,
				Value:    signed,
				Path:     "/",
				Expires:  exp,
				HttpOnly: true,
				Secure:   issuer.secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(CtxCartIDKey, cartID)
			return next(c)
		}
	}
}

// ヘッダ優先、無ければcookie
func readCartToken(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(CartTokenHeader)); v != "" {
		return v
	}
	if ck, err := r.Cookie(CartTokenCookie); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
