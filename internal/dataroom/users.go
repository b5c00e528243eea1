package dataroom

import (
	"context"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Laisky/dataroom/library/log"
)

const invalidCredentialsMessage = "invalid credentials"

// TokenIssuer signs and verifies bearer tokens carrying a user id.
type TokenIssuer interface {
	Sign(userID int64) (string, error)
	Parse(token string) (int64, error)
}

// UserItem is the public view of an account.
type UserItem struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Theme string `json:"theme"`
}

// AccessToken is returned by a successful login.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthService registers users and exchanges credentials for tokens. The
// users table is created by RunMigrations.
type AuthService struct {
	db       *gorm.DB
	tokens   TokenIssuer
	guard    LoginGuard
	settings AuthSettings
	logger   logSDK.Logger
	clock    Clock
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, tokens TokenIssuer, guard LoginGuard, settings AuthSettings, logger logSDK.Logger, clock Clock) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("gorm db is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if guard == nil {
		guard = NewMemoryLoginGuard(settings.LoginMaxFailures, settings.LoginWindow, clock)
	}
	if logger == nil {
		logger = log.Logger.Named("dataroom_auth")
	}
	if settings.BcryptCost == 0 {
		settings.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{db: db, tokens: tokens, guard: guard, settings: settings, logger: logger, clock: clock}, nil
}

func normalizeCredentials(email, password string) (string, string) {
	return strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(password)
}

func toUserItem(u *User) *UserItem {
	return &UserItem{ID: u.ID, Email: u.Email, Theme: u.Theme}
}

// Register creates an account with a bcrypt password hash.
func (a *AuthService) Register(ctx context.Context, email, password string) (*UserItem, error) {
	email, password = normalizeCredentials(email, password)
	if email == "" || password == "" {
		return nil, errInvalidArgument("email and password required")
	}

	var count int64
	if err := a.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, errors.Wrap(err, "check email")
	}
	if count > 0 {
		return nil, errEmailTaken()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.settings.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, errInvalidArgument("password is too long")
		}
		return nil, errors.Wrap(err, "hash password")
	}

	user := User{Email: email, PasswordHash: string(hash), Theme: ThemeLight, CreatedAt: a.clock().UTC().Truncate(time.Microsecond)}
	if err = a.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errEmailTaken()
		}
		return nil, errors.Wrap(err, "insert user")
	}

	a.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return toUserItem(&user), nil
}

func errEmailTaken() error {
	return errors.WithStack(NewError(ErrCodeConflict, "email already registered", false))
}

// Login verifies credentials and issues a bearer token. Unknown emails and
// wrong passwords return the same error.
func (a *AuthService) Login(ctx context.Context, email, password string) (*AccessToken, error) {
	email, password = normalizeCredentials(email, password)
	if !a.guard.Allow(ctx, email) {
		return nil, errors.WithStack(NewError(ErrCodeRateLimited, "too many failed login attempts, try again later", true))
	}

	var user User
	err := a.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "load user")
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		a.guard.RecordFailure(ctx, email)
		return nil, errors.WithStack(NewError(ErrCodeUnauthenticated, invalidCredentialsMessage, false))
	}
	a.guard.Reset(ctx, email)

	token, err := a.tokens.Sign(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}
	return &AccessToken{AccessToken: token, TokenType: "bearer"}, nil
}

// Authenticate turns a bearer token into a user id.
func (a *AuthService) Authenticate(token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, errors.WithStack(NewError(ErrCodeUnauthenticated, "unauthorized", false))
	}
	uid, err := a.tokens.Parse(token)
	if err != nil {
		a.logger.Debug("reject bearer token", zap.Error(err))
		return 0, errors.WithStack(NewError(ErrCodeUnauthenticated, "unauthorized", false))
	}
	return uid, nil
}

// Me returns the account behind a verified token.
func (a *AuthService) Me(ctx context.Context, userID int64) (*UserItem, error) {
	var user User
	if err := a.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithStack(NewError(ErrCodeUnauthenticated, "unauthorized", false))
		}
		return nil, errors.Wrap(err, "load user")
	}
	return toUserItem(&user), nil
}

// UpdateTheme stores the UI theme preference.
func (a *AuthService) UpdateTheme(ctx context.Context, userID int64, theme string) (string, error) {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != ThemeLight && theme != ThemeDark {
		return "", errInvalidArgument("invalid theme")
	}

	res := a.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("theme", theme)
	if res.Error != nil {
		return "", errors.Wrap(res.Error, "update theme")
	}
	if res.RowsAffected == 0 {
		return "", errors.WithStack(NewError(ErrCodeUnauthenticated, "unauthorized", false))
	}
	return theme, nil
}
