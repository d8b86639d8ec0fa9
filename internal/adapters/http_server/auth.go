package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"feedback_board/internal/domain"
)

type ctxKey int

const viewerKey ctxKey = iota

// ViewerContext extracts the viewer identity from an HMAC-signed bearer
// token issued by the hosted auth service. The board is publicly readable,
// so a missing or invalid token means signed-out, not a request failure;
// write paths reject signed-out viewers themselves.
func ViewerContext(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, ok := viewerFromHeader(r.Header.Get("Authorization"), secret)
			if ok {
				r = r.WithContext(context.WithValue(r.Context(), viewerKey, v))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ViewerFrom returns the request's viewer; zero value means signed out.
func ViewerFrom(ctx context.Context) domain.Viewer {
	v, _ := ctx.Value(viewerKey).(domain.Viewer)
	return v
}

func viewerFromHeader(authHeader, secret string) (domain.Viewer, bool) {
	if authHeader == "" || secret == "" {
		return domain.Viewer{}, false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return domain.Viewer{}, false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		log.Debug().Err(err).Msg("bearer token rejected; treating as signed out")
		return domain.Viewer{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Viewer{}, false
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		sub, _ = claims["user_id"].(string)
	}
	if sub == "" {
		return domain.Viewer{}, false
	}
	email, _ := claims["email"].(string)
	return domain.Viewer{ID: sub, EmailOrHandle: email}, true
}
