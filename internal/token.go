package internal

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/pricing/internal/constants"
	inErrors "github.com/Alturino/pricing/internal/errors"
	"github.com/Alturino/pricing/internal/log"
	"github.com/Alturino/pricing/internal/otel"
)

func VerifyToken(c context.Context, token string, secretKey string) (*jwt.Token, error) {
	c, span := otel.Tracer.Start(c, "VerifyToken")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "VerifyToken").
		Str(log.KeyProcess, "parsing claims").
		Logger()

	logger.Trace().Msg("parsing claims")
	jwtToken, err := jwt.ParseWithClaims(token,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		},
		jwt.WithAudience(constants.AUDIENCE_USER),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(constants.ISSUER_USER_SERVICE),
	)
	if err != nil {
		err = fmt.Errorf("failed parsing claims with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Msg("parsed claims")

	logger = logger.With().Str(log.KeyProcess, "validating token").Logger()
	if !jwtToken.Valid {
		err = fmt.Errorf("failed validating token with error=%w", inErrors.ErrTokenInvalid)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, inErrors.ErrTokenInvalid
	}
	logger.Trace().Msg("validated token")

	return jwtToken, nil
}

type jwtToken struct{}

func AttachJwtToken(c context.Context, jwt *jwt.Token) context.Context {
	return context.WithValue(c, jwtToken{}, jwt)
}

func JwtTokenFromContext(c context.Context) (*jwt.Token, bool) {
	token, ok := c.Value(jwtToken{}).(*jwt.Token)
	return token, ok && token != nil
}

func UserIdFromJwtToken(c context.Context) (uuid.UUID, error) {
	c, span := otel.Tracer.Start(c, "UserIdFromJwtToken")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserIdFromJwtToken").
		Str(log.KeyProcess, "getting userId from jwtToken").
		Logger()

	token, ok := JwtTokenFromContext(c)
	if !ok {
		otel.RecordError(inErrors.ErrEmptyAuth, span)
		logger.Trace().Err(inErrors.ErrEmptyAuth).Msg(inErrors.ErrEmptyAuth.Error())
		return uuid.Nil, inErrors.ErrEmptyAuth
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		err = fmt.Errorf("failed getting subject from jwt with error=%w", inErrors.ErrEmptySubject)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return uuid.Nil, err
	}

	userId, err := uuid.Parse(subject)
	if err != nil {
		err = fmt.Errorf("failed parsing subject=%s with error=%w", subject, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return uuid.Nil, err
	}
	logger.Trace().Str(log.KeyUserID, userId.String()).Msg("parsed subject as userId")

	return userId, nil
}
