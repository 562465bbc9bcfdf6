package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/shishobooks/locallibrary/pkg/errcodes"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost = 12
	// TokenExpiry matches the session cookie lifetime.
	TokenExpiry = 7 * 24 * time.Hour
	// TokenIssuer is stamped into every token and required when validating.
	TokenIssuer = "locallibrary"
)

// ErrInvalidCredentials is returned for an unknown user, an inactive user
// and a wrong password alike.
var ErrInvalidCredentials = errcodes.Unauthorized("Invalid username or password")

// dummyHash is compared against when the username doesn't exist so a failed
// login costs the same either way.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("locallibrary"), BcryptCost)

type JWTClaims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Service handles logins, session tokens and first-run setup.
type Service struct {
	db        *bun.DB
	jwtSecret []byte
}

func NewService(db *bun.DB, jwtSecret string) *Service {
	return &Service{
		db:        db,
		jwtSecret: []byte(jwtSecret),
	}
}

// selectUser loads a user with the role and permissions every capability
// check needs.
func selectUser(db bun.IDB, user *models.User) *bun.SelectQuery {
	return db.NewSelect().
		Model(user).
		Relation("Role").
		Relation("Role.Permissions")
}

func (s *Service) CountUsers(ctx context.Context) (int, error) {
	count, err := s.db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return count, nil
}

// Authenticate checks a username and password. Usernames match without
// regard to case and only active accounts can sign in.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user := &models.User{}
	err := selectUser(s.db, user).
		Where("u.username = ? COLLATE NOCASE", username).
		Where("u.is_active = ?", true).
		Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, errors.WithStack(err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if user.Role != nil {
		claims.Role = user.Role.Name
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return signed, nil
}

// ValidateToken parses a session token signed with this service's secret.
// The role claim is informational; permissions are always reloaded.
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return claims, nil
}

// GetUserByID returns an active user. Deactivated users come back as
// sql.ErrNoRows so their outstanding tokens stop working.
func (s *Service) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return getActiveUser(ctx, s.db, id)
}

func getActiveUser(ctx context.Context, db bun.IDB, id int) (*models.User, error) {
	user := &models.User{}
	err := selectUser(db, user).
		Where("u.id = ?", id).
		Where("u.is_active = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// CreateFirstAdmin creates the admin account on a fresh install. It fails
// once any account exists.
func (s *Service) CreateFirstAdmin(ctx context.Context, username string, email *string, password string) (*models.User, error) {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		count, err := tx.NewSelect().Model((*models.User)(nil)).Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if count > 0 {
			return errcodes.Forbidden("Setup has already been completed")
		}

		role := &models.Role{}
		err = tx.NewSelect().
			Model(role).
			Where("name = ?", models.RoleAdmin).
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		now := time.Now()
		admin := &models.User{
			CreatedAt:    now,
			UpdatedAt:    now,
			Username:     username,
			Email:        email,
			PasswordHash: hashedPassword,
			RoleID:       role.ID,
			IsActive:     true,
		}
		if _, err := tx.NewInsert().Model(admin).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}

		user, err = getActiveUser(ctx, tx, admin.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(hashedPassword), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
