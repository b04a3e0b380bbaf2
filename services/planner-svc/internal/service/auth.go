package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"skypath/pkg/apperror"
	"skypath/pkg/metrics"
	"skypath/pkg/passhash"
	"skypath/pkg/telemetry"
	"skypath/services/planner-svc/internal/repository"
)

const (
	defaultMinPasswordLength = 8
	maxUsernameLength        = 64
)

// Session - результат успешного входа
type Session struct {
	User   *repository.User
	Tokens *passhash.TokenPair
}

// AuthService регистрирует пользователей и выдаёт JWT
type AuthService struct {
	users       repository.UserRepository
	tokens      *passhash.JWTManager
	params      *passhash.Argon2Params
	minPassword int
	metrics     *metrics.Metrics
}

// NewAuthService создаёт сервис аутентификации
func NewAuthService(
	users repository.UserRepository,
	tokens *passhash.JWTManager,
	params *passhash.Argon2Params,
	minPasswordLength int,
	m *metrics.Metrics,
) *AuthService {
	if params == nil {
		params = passhash.DefaultArgon2Params()
	}
	if minPasswordLength <= 0 {
		minPasswordLength = defaultMinPasswordLength
	}
	return &AuthService{
		users:       users,
		tokens:      tokens,
		params:      params,
		minPassword: minPasswordLength,
		metrics:     m,
	}
}

// Tokens возвращает менеджер токенов для middleware
func (s *AuthService) Tokens() *passhash.JWTManager {
	return s.tokens
}

// Register создаёт пользователя
func (s *AuthService) Register(ctx context.Context, username, password string) (user *repository.User, err error) {
	ctx, span := telemetry.StartSpan(ctx, "AuthService.Register")
	defer span.End()
	defer func() { s.metrics.RecordAuth("register", err == nil) }()

	username = strings.TrimSpace(username)
	span.SetAttributes(attribute.String("username", username))

	if err := s.validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := passhash.HashPasswordWithParams(password, s.params)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to hash password")
	}

	user = &repository.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, apperror.NewWithField(apperror.CodeAlreadyExists, "username already taken", "username")
		}
		telemetry.SetError(ctx, err)
		return nil, apperror.Wrap(err, apperror.CodePersistence, "failed to create user")
	}

	telemetry.AddEvent(ctx, "user_registered", attribute.Int64("user_id", user.ID))
	return user, nil
}

// Login проверяет пароль и выдаёт пару токенов
func (s *AuthService) Login(ctx context.Context, username, password string) (session *Session, err error) {
	ctx, span := telemetry.StartSpan(ctx, "AuthService.Login")
	defer span.End()
	defer func() { s.metrics.RecordAuth("login", err == nil) }()

	username = strings.TrimSpace(username)
	span.SetAttributes(attribute.String("username", username))

	if username == "" || password == "" {
		return nil, apperror.New(apperror.CodeInvalidArgument, "username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			telemetry.AddEvent(ctx, "user_not_found")
			return nil, apperror.ErrInvalidCredentials
		}
		telemetry.SetError(ctx, err)
		return nil, apperror.Wrap(err, apperror.CodePersistence, "failed to get user")
	}

	valid, err := passhash.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to verify password")
	}
	if !valid {
		telemetry.AddEvent(ctx, "invalid_password")
		return nil, apperror.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(strconv.FormatInt(user.ID, 10), user.Username)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to generate tokens")
	}

	telemetry.AddEvent(ctx, "login_success", attribute.Int64("user_id", user.ID))
	return &Session{User: user, Tokens: pair}, nil
}

// Refresh выдаёт новый access token по refresh token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair *passhash.TokenPair, err error) {
	ctx, span := telemetry.StartSpan(ctx, "AuthService.Refresh")
	defer span.End()
	defer func() { s.metrics.RecordAuth("refresh", err == nil) }()

	if refreshToken == "" {
		return nil, apperror.NewWithField(apperror.CodeInvalidArgument, "refresh token is required", "refresh_token")
	}

	access, _, err := s.tokens.RefreshAccessToken(refreshToken)
	if err != nil {
		telemetry.AddEvent(ctx, "refresh_rejected")
		return nil, apperror.Wrap(err, apperror.CodeUnauthenticated, "invalid refresh token")
	}

	return &passhash.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    s.tokens.GetAccessTokenExpiry(),
		TokenType:    "Bearer",
	}, nil
}

func (s *AuthService) validateCredentials(username, password string) error {
	v := apperror.NewValidationErrors()
	switch {
	case username == "":
		v.Add(apperror.NewWithField(apperror.CodeInvalidArgument, "username is required", "username"))
	case utf8.RuneCountInString(username) > maxUsernameLength:
		v.Add(apperror.NewWithField(apperror.CodeInvalidArgument, "username is too long", "username"))
	}
	if utf8.RuneCountInString(password) < s.minPassword {
		v.Add(apperror.NewWithField(apperror.CodeInvalidArgument,
			"password must be at least "+strconv.Itoa(s.minPassword)+" characters", "password"))
	}
	return v.Err()
}
