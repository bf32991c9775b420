package username

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/naztar0/TgPostsGuardian/models"
	"github.com/naztar0/TgPostsGuardian/pkg/quota"
	"github.com/naztar0/TgPostsGuardian/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRenamer struct {
	mock.Mock
}

func (m *MockRenamer) RenameChannel(ctx context.Context, channel models.Channel, username string) error {
	args := m.Called(ctx, channel, username)
	return args.Error(0)
}

type fakeRepo struct {
	username string
	changed  *time.Time
	logs     []models.Log
}

func (r *fakeRepo) Settings(context.Context) (models.Settings, error) {
	return models.DefaultSettings(), nil
}

func (r *fakeRepo) UpdateChannelUsername(_ context.Context, _ int64, username string, at time.Time) error {
	r.username = username
	r.changed = &at
	return nil
}

func (r *fakeRepo) CreateLog(_ context.Context, entry *models.Log) error {
	r.logs = append(r.logs, *entry)
	return nil
}

type sleepCall struct {
	d, limit time.Duration
}

func newTestChanger(repo *fakeRepo, renamer *MockRenamer) (*Changer, *[]sleepCall) {
	var sleeps []sleepCall
	c := NewChanger(repo, renamer, 10, 5*time.Minute)
	c.sleep = func(_ context.Context, d, limit time.Duration) error {
		sleeps = append(sleeps, sleepCall{d, limit})
		return nil
	}
	return c, &sleeps
}

var channel = models.Channel{ID: 1, Title: "News", Username: "news_ab"}

func TestChangeSuccess(t *testing.T) {
	repo := &fakeRepo{}
	renamer := new(MockRenamer)
	renamer.On("RenameChannel", mock.Anything, channel, mock.AnythingOfType("string")).Return(nil).Once()
	c, sleeps := newTestChanger(repo, renamer)

	lid := int64(5)
	name, err := c.Change(context.Background(), channel, Change{Reason: models.ReasonDeletionsLimit, LimitationID: &lid, Comment: "test"})
	require.NoError(t, err)
	assert.NotEmpty(t, name)
	assert.Equal(t, name, repo.username)
	require.Len(t, repo.logs, 1)
	assert.True(t, repo.logs[0].Success)
	assert.Equal(t, models.LogUsernameChange, repo.logs[0].Type)
	assert.Equal(t, &lid, repo.logs[0].LimitationID)
	assert.Empty(t, *sleeps)
	renamer.AssertExpectations(t)
}

func TestChangeRetriesOccupied(t *testing.T) {
	repo := &fakeRepo{}
	renamer := new(MockRenamer)
	renamer.On("RenameChannel", mock.Anything, channel, mock.Anything).Return(transport.ErrNameOccupied).Twice()
	renamer.On("RenameChannel", mock.Anything, channel, mock.Anything).Return(nil).Once()
	c, sleeps := newTestChanger(repo, renamer)

	name, err := c.Change(context.Background(), channel, Change{Reason: models.ReasonThirdPartyRequest})
	require.NoError(t, err)
	assert.NotEmpty(t, name)
	assert.Len(t, *sleeps, 2)
	assert.Equal(t, 5*time.Second, (*sleeps)[0].d)
	require.Len(t, repo.logs, 3)
	assert.False(t, repo.logs[0].Success)
	assert.False(t, repo.logs[1].Success)
	assert.True(t, repo.logs[2].Success)
	renamer.AssertNumberOfCalls(t, "RenameChannel", 3)
}

func TestChangeOccupiedEveryAttempt(t *testing.T) {
	repo := &fakeRepo{}
	renamer := new(MockRenamer)
	renamer.On("RenameChannel", mock.Anything, channel, mock.Anything).Return(transport.ErrNameOccupied)
	c, sleeps := newTestChanger(repo, renamer)

	name, err := c.Change(context.Background(), channel, Change{Reason: models.ReasonDeletionsLimit})
	require.NoError(t, err)
	assert.Empty(t, name)
	require.Len(t, repo.logs, Attempts)
	for _, entry := range repo.logs {
		assert.False(t, entry.Success)
		assert.NotEmpty(t, entry.ErrorMessage)
	}
	assert.Len(t, *sleeps, Attempts-1)
}

func TestChangeGivesUpAfterAttempts(t *testing.T) {
	repo := &fakeRepo{}
	renamer := new(MockRenamer)
	renamer.On("RenameChannel", mock.Anything, channel, mock.Anything).Return(errors.New("CHANNELS_ADMIN_PUBLIC_TOO_MUCH"))
	c, sleeps := newTestChanger(repo, renamer)

	name, err := c.Change(context.Background(), channel, Change{Reason: models.ReasonDeletionsLimit})
	require.NoError(t, err)
	assert.Empty(t, name)
	require.Len(t, repo.logs, Attempts)
	for _, entry := range repo.logs {
		assert.False(t, entry.Success)
		assert.Contains(t, entry.ErrorMessage, "CHANNELS_ADMIN_PUBLIC_TOO_MUCH")
	}
	require.Len(t, *sleeps, Attempts-1)
	assert.Equal(t, time.Minute, (*sleeps)[0].d)
	renamer.AssertNumberOfCalls(t, "RenameChannel", Attempts)
}

func TestChangeFloodWait(t *testing.T) {
	repo := &fakeRepo{}
	renamer := new(MockRenamer)
	renamer.On("RenameChannel", mock.Anything, channel, mock.Anything).
		Return(&transport.RateLimitError{Wait: time.Hour, Err: errors.New("FLOOD_WAIT_3600")}).Once()
	renamer.On("RenameChannel", mock.Anything, channel, mock.Anything).Return(nil).Once()
	c, sleeps := newTestChanger(repo, renamer)

	name, err := c.Change(context.Background(), channel, Change{Reason: models.ReasonDeletionsLimit})
	require.NoError(t, err)
	assert.NotEmpty(t, name)
	require.Len(t, repo.logs, 2)
	assert.False(t, repo.logs[0].Success)
	assert.Contains(t, repo.logs[0].ErrorMessage, "FLOOD_WAIT_3600")
	assert.True(t, repo.logs[1].Success)
	require.Len(t, *sleeps, 1)
	assert.Equal(t, sleepCall{time.Hour, 5 * time.Minute}, (*sleeps)[0])
}

func TestChangeFloodWaitIgnored(t *testing.T) {
	repo := &fakeRepo{}
	renamer := new(MockRenamer)
	renamer.On("RenameChannel", mock.Anything, channel, mock.Anything).
		Return(&transport.RateLimitError{Wait: time.Hour, Err: errors.New("FLOOD_WAIT_3600")}).Once()
	c, sleeps := newTestChanger(repo, renamer)

	name, err := c.Change(context.Background(), channel, Change{Reason: models.ReasonThirdPartyRequest, IgnoreWait: true})
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Empty(t, *sleeps)
	assert.Len(t, repo.logs, 1)
}

func TestRotate(t *testing.T) {
	repo := &fakeRepo{}
	renamer := new(MockRenamer)
	renamer.On("RenameChannel", mock.Anything, channel, mock.Anything).Return(nil).Once()
	c, _ := newTestChanger(repo, renamer)

	ok, err := c.Rotate(context.Background(), channel, quota.Request{ChannelID: 1, Reason: models.ReasonDeletionsLimit})
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.ReasonDeletionsLimit, *repo.logs[0].Reason)
}
