package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Alturino/pricing/internal"
	inErrors "github.com/Alturino/pricing/internal/errors"
	inHttp "github.com/Alturino/pricing/internal/http"
	"github.com/Alturino/pricing/internal/log"
)

// Auth verifies the bearer token and attaches it to the request context.
// When required is false, requests without an Authorization header pass
// through anonymously; a present but invalid token is still rejected.
func Auth(secretKey string, required bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).With().Str(log.KeyTag, "middleware Auth").Logger()
			c := logger.WithContext(r.Context())

			authorization := r.Header.Get(inHttp.KEY_HEADER_AUTHORIZATION)
			if authorization == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				logger.Error().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
				inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrEmptyAuth)
				return
			}

			token, found := strings.CutPrefix(authorization, "Bearer ")
			if !found {
				token, found = strings.CutPrefix(authorization, "bearer ")
			}
			if !found || token == "" {
				logger.Error().Err(inErrors.ErrTokenInvalid).Msg(inErrors.ErrTokenInvalid.Error())
				inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrTokenInvalid)
				return
			}

			jwtToken, err := internal.VerifyToken(c, token, secretKey)
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				inHttp.WriteFailed(c, w, http.StatusUnauthorized, inErrors.ErrTokenInvalid)
				return
			}

			c = internal.AttachJwtToken(c, jwtToken)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
