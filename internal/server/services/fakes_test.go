package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/tubekeeper/internal/common"
	"github.com/dmitrijs2005/tubekeeper/internal/dbx"
	"github.com/dmitrijs2005/tubekeeper/internal/logging"
	"github.com/dmitrijs2005/tubekeeper/internal/server/auth"
	"github.com/dmitrijs2005/tubekeeper/internal/server/media"
	"github.com/dmitrijs2005/tubekeeper/internal/server/models"
	"github.com/dmitrijs2005/tubekeeper/internal/server/password"
	"github.com/dmitrijs2005/tubekeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/tubekeeper/internal/server/repositories/channels"
)

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
)

// fakeAccounts is an in-memory credential store with the same uniqueness
// and compare-and-swap guarantees as the Postgres repository.
type fakeAccounts struct {
	mu   sync.Mutex
	rows map[string]*models.Account

	// failures keyed by method name
	fail map[string]error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{rows: map[string]*models.Account{}, fail: map[string]error{}}
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	if a.RefreshToken != nil {
		t := *a.RefreshToken
		c.RefreshToken = &t
	}
	return &c
}

func (f *fakeAccounts) failure(method string) error {
	return f.fail[method]
}

func (f *fakeAccounts) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("Create"); err != nil {
		return nil, err
	}
	for _, r := range f.rows {
		if r.Username == a.Username || r.Email == a.Email {
			return nil, fmt.Errorf("%w: duplicate", common.ErrorConflict)
		}
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	f.rows[a.ID] = copyAccount(a)
	return copyAccount(a), nil
}

func (f *fakeAccounts) Exists(ctx context.Context, username, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("Exists"); err != nil {
		return false, err
	}
	for _, r := range f.rows {
		if r.Username == username || r.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccounts) FindByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("FindByUsernameOrEmail"); err != nil {
		return nil, err
	}
	for _, r := range f.rows {
		if r.Username == identifier || r.Email == identifier {
			return copyAccount(r), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) FindByID(ctx context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("FindByID"); err != nil {
		return nil, err
	}
	r, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyAccount(r), nil
}

func (f *fakeAccounts) FindByIDForUpdate(ctx context.Context, id string) (*models.Account, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeAccounts) update(method, id string, fn func(r *models.Account)) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(method); err != nil {
		return nil, err
	}
	r, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	fn(r)
	r.UpdatedAt = time.Now().UTC()
	return copyAccount(r), nil
}

func (f *fakeAccounts) SetRefreshToken(ctx context.Context, id string, token string) error {
	_, err := f.update("SetRefreshToken", id, func(r *models.Account) { r.RefreshToken = &token })
	return err
}

func (f *fakeAccounts) RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("RotateRefreshToken"); err != nil {
		return false, err
	}
	r, ok := f.rows[id]
	if !ok || r.RefreshToken == nil || *r.RefreshToken != current {
		return false, nil
	}
	r.RefreshToken = &next
	return true, nil
}

func (f *fakeAccounts) ClearRefreshToken(ctx context.Context, id string) error {
	_, err := f.update("ClearRefreshToken", id, func(r *models.Account) { r.RefreshToken = nil })
	return err
}

func (f *fakeAccounts) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := f.update("UpdatePasswordHash", id, func(r *models.Account) { r.PasswordHash = hash })
	return err
}

func (f *fakeAccounts) UpdateFullName(ctx context.Context, id, fullName string) (*models.Account, error) {
	return f.update("UpdateFullName", id, func(r *models.Account) { r.FullName = fullName })
}

func (f *fakeAccounts) UpdateMedia(ctx context.Context, id string, slot models.MediaSlot, m models.Media) (*models.Account, error) {
	return f.update("UpdateMedia", id, func(r *models.Account) {
		if slot == models.SlotAvatar {
			r.Avatar = m
		} else {
			r.CoverImage = m
		}
	})
}

func (f *fakeAccounts) Delete(ctx context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure("Delete"); err != nil {
		return nil, err
	}
	r, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.rows, id)
	return r, nil
}

func (f *fakeAccounts) get(t *testing.T, id string) *models.Account {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	require.True(t, ok, "account %s not stored", id)
	return copyAccount(r)
}

type fakeChannels struct {
	profile *models.ChannelProfile
	history []models.WatchedVideo
	err     error

	gotUsername string
	gotViewer   string
}

func (f *fakeChannels) Profile(ctx context.Context, username, viewerID string) (*models.ChannelProfile, error) {
	f.gotUsername, f.gotViewer = username, viewerID
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeChannels) WatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}

type fakeRepoManager struct {
	accounts *fakeAccounts
	channels *fakeChannels
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accounts.Repository    { return m.accounts }
func (m *fakeRepoManager) Channels(db dbx.DBTX) channels.Repository    { return m.channels }

// fakeStorage hands out sequential object ids.
type fakeStorage struct {
	mu        sync.Mutex
	seq       int
	uploadErr map[media.Kind]error
	deleteErr error

	uploaded []string
	deleted  []string
}

func (f *fakeStorage) Upload(ctx context.Context, localPath string, kind media.Kind) (*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.uploadErr[kind]; err != nil {
		return nil, err
	}
	f.seq++
	id := fmt.Sprintf("%s/%d", kind, f.seq)
	f.uploaded = append(f.uploaded, id)
	return &models.Media{ObjectID: id, URL: "http://cdn/" + id}, nil
}

func (f *fakeStorage) Delete(ctx context.Context, objectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, objectID)
	return f.deleteErr
}

type fixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	accounts *fakeAccounts
	channels *fakeChannels
	storage  *fakeStorage
	issuer   *auth.Issuer
	hasher   *password.Bcrypt

	sessions *SessionService
	account  *AccountService
	channel  *ChannelService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	issuer, err := auth.NewIssuer(auth.Config{
		AccessSecret:  testAccessSecret,
		AccessTTL:     time.Minute,
		RefreshSecret: testRefreshSecret,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	hasher, err := password.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		mock:     mock,
		accounts: newFakeAccounts(),
		channels: &fakeChannels{},
		storage:  &fakeStorage{uploadErr: map[media.Kind]error{}},
		issuer:   issuer,
		hasher:   hasher,
	}
	rm := &fakeRepoManager{accounts: f.accounts, channels: f.channels}
	f.sessions = NewSessionService(db, rm, issuer, hasher, logging.Nop{})
	f.account = NewAccountService(db, rm, hasher, f.storage, logging.Nop{})
	f.channel = NewChannelService(db, rm)
	return f
}

// seed stores an account with the given password without going through Register.
func (f *fixture) seed(t *testing.T, id, username, email, plaintext string) *models.Account {
	t.Helper()
	hash, err := f.hasher.Hash(plaintext)
	require.NoError(t, err)
	a, err := f.accounts.Create(context.Background(), &models.Account{
		ID:           id,
		Username:     username,
		Email:        email,
		FullName:     "Test " + username,
		PasswordHash: hash,
		Avatar:       models.Media{ObjectID: "avatars/seed-" + id, URL: "http://cdn/avatars/seed-" + id},
	})
	require.NoError(t, err)
	return a
}

var errBoom = errors.New("boom")
