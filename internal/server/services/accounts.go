package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/tubekeeper/internal/common"
	"github.com/dmitrijs2005/tubekeeper/internal/dbx"
	"github.com/dmitrijs2005/tubekeeper/internal/logging"
	"github.com/dmitrijs2005/tubekeeper/internal/server/media"
	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
	"github.com/dmitrijs2005/tubekeeper/internal/server/password"
	"github.com/dmitrijs2005/tubekeeper/internal/server/repositories/repomanager"
)

// Registration is the input of Register. The paths point at staged uploads;
// CoverImagePath may be empty.
type Registration struct {
	Username       string `validate:"required"`
	Email          string `validate:"required,email"`
	FullName       string `validate:"required"`
	Password       string `validate:"notblank"`
	AvatarPath     string
	CoverImagePath string
}

// AccountService manages the account record: registration, password and
// profile changes, media swaps and deletion.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      password.Hasher
	storage     media.Storage
	validate    *validator.Validate
	log         logging.Logger
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher password.Hasher,
	storage media.Storage, log logging.Logger) *AccountService {
	v := validator.New()
	// Passwords are hashed verbatim, so blankness is checked without trimming.
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	return &AccountService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		storage:     storage,
		validate:    v,
		log:         log.With("module", "accounts"),
	}
}

func (s *AccountService) Register(ctx context.Context, r Registration) (*models.AccountView, error) {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)

	if err := s.validate.Struct(r); err != nil {
		return nil, validationError(err)
	}

	repo := s.repomanager.Accounts(s.db)
	exists, err := repo.Exists(ctx, r.Username, r.Email)
	if err != nil {
		return nil, common.Internal("failed to check account", err)
	}
	if exists {
		return nil, common.Conflict("user with email or username already exists")
	}

	if r.AvatarPath == "" {
		return nil, common.InvalidArgument("avatar file is required")
	}

	hash, err := s.hasher.Hash(r.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return nil, common.InvalidArgument("password is too long")
		}
		return nil, common.Internal("failed to hash password", err)
	}

	avatar, err := s.storage.Upload(ctx, r.AvatarPath, media.KindAvatar)
	if err != nil {
		return nil, common.Internal("avatar upload failed", err)
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Username:     r.Username,
		Email:        r.Email,
		FullName:     r.FullName,
		PasswordHash: hash,
		Avatar:       *avatar,
	}

	if r.CoverImagePath != "" {
		cover, err := s.storage.Upload(ctx, r.CoverImagePath, media.KindCoverImage)
		if err != nil {
			s.log.Warn(ctx, "cover image upload failed", "error", err)
		} else {
			account.CoverImage = *cover
		}
	}

	created, err := repo.Create(ctx, account)
	if err != nil {
		s.discard(ctx, account.Avatar.ObjectID)
		s.discard(ctx, account.CoverImage.ObjectID)
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.Conflict("user with email or username already exists")
		}
		return nil, common.Internal("failed to register account", err)
	}

	s.log.Info(ctx, "account registered", "account_id", created.ID)
	return created.View(), nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "email" {
				return common.InvalidArgument("invalid email format")
			}
		}
		return common.InvalidArgument("all fields are required")
	}
	return common.InvalidArgument("invalid registration")
}

func (s *AccountService) CurrentAccount(ctx context.Context, id string) (*models.AccountView, error) {
	account, err := s.repomanager.Accounts(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, accountLookupError(err)
	}
	return account.View(), nil
}

// ChangePassword replaces the password hash. The stored refresh token is
// left as is, so existing sessions keep working.
func (s *AccountService) ChangePassword(ctx context.Context, id, oldPlaintext, newPlaintext string) error {
	if strings.TrimSpace(newPlaintext) == "" {
		return common.InvalidArgument("new password is required")
	}
	if oldPlaintext == newPlaintext {
		return common.InvalidArgument("new password must differ from the old one")
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.FindByID(ctx, id)
	if err != nil {
		return accountLookupError(err)
	}

	ok, err := s.hasher.Verify(oldPlaintext, account.PasswordHash)
	if err != nil {
		return common.Internal("failed to verify password", err)
	}
	if !ok {
		return common.Unauthorized("invalid old password")
	}

	hash, err := s.hasher.Hash(newPlaintext)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return common.InvalidArgument("password is too long")
		}
		return common.Internal("failed to hash password", err)
	}

	if err := repo.UpdatePasswordHash(ctx, id, hash); err != nil {
		return accountLookupError(err)
	}

	s.log.Info(ctx, "password changed", "account_id", id)
	return nil
}

// UpdateAccountDetails changes the display name, the only mutable profile field.
func (s *AccountService) UpdateAccountDetails(ctx context.Context, id, fullName string) (*models.AccountView, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, common.InvalidArgument("full name is required")
	}

	account, err := s.repomanager.Accounts(s.db).UpdateFullName(ctx, id, fullName)
	if err != nil {
		return nil, accountLookupError(err)
	}
	return account.View(), nil
}

func (s *AccountService) UpdateAvatar(ctx context.Context, id, localPath string) (*models.AccountView, error) {
	return s.replaceMedia(ctx, id, localPath, models.SlotAvatar)
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, id, localPath string) (*models.AccountView, error) {
	return s.replaceMedia(ctx, id, localPath, models.SlotCoverImage)
}

// replaceMedia uploads the new object, points the account at it under a row
// lock and only then deletes the previous object. The account never
// references a deleted object.
func (s *AccountService) replaceMedia(ctx context.Context, id, localPath string, slot models.MediaSlot) (*models.AccountView, error) {
	kind, label := media.KindAvatar, "avatar"
	if slot == models.SlotCoverImage {
		kind, label = media.KindCoverImage, "cover image"
	}

	if localPath == "" {
		return nil, common.InvalidArgument(label + " file is missing")
	}

	uploaded, err := s.storage.Upload(ctx, localPath, kind)
	if err != nil {
		return nil, common.Internal("error while uploading "+label, err)
	}

	var previous models.Media
	var updated *models.Account
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		current, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = current.Avatar
		if slot == models.SlotCoverImage {
			previous = current.CoverImage
		}

		updated, err = repo.UpdateMedia(ctx, id, slot, *uploaded)
		return err
	})
	if err != nil {
		s.discard(ctx, uploaded.ObjectID)
		return nil, accountLookupError(err)
	}

	if previous.ObjectID != uploaded.ObjectID {
		s.discard(ctx, previous.ObjectID)
	}

	s.log.Info(ctx, label+" updated", "account_id", id)
	return updated.View(), nil
}

// DeleteAccount removes the record first, then its media.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	deleted, err := s.repomanager.Accounts(s.db).Delete(ctx, id)
	if err != nil {
		return accountLookupError(err)
	}

	s.discard(ctx, deleted.Avatar.ObjectID)
	s.discard(ctx, deleted.CoverImage.ObjectID)

	s.log.Info(ctx, "account deleted", "account_id", id)
	return nil
}

// discard deletes a stored object; failures are logged and swallowed.
func (s *AccountService) discard(ctx context.Context, objectID string) {
	if objectID == "" {
		return
	}
	if err := s.storage.Delete(ctx, objectID); err != nil {
		s.log.Warn(ctx, "media delete failed", "object_id", objectID, "error", err)
	}
}

func accountLookupError(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NotFound("user does not exist")
	}
	return common.Internal("account storage failure", err)
}
