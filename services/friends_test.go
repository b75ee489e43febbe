package services

import (
	"context"
	"errors"
	"testing"

	"mindcare/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errKind(t *testing.T, err error) apperr.Kind {
	t.Helper()
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %v", err)
	return appErr.Kind
}

func TestFriendRequestAcceptLifecycle(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	fs := NewFriendService()

	alice := createTestUser(t)
	bob := createTestUser(t)

	request, err := fs.SendFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", request.Status)

	require.NoError(t, fs.AcceptFriendRequest(ctx, request.ID, bob.ID))

	// Дружба симметрична
	aliceFriends, err := fs.GetFriendList(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceFriends, 1)
	assert.Equal(t, bob.ID, aliceFriends[0].ID)

	bobFriends, err := fs.GetFriendList(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobFriends, 1)
	assert.Equal(t, alice.ID, bobFriends[0].ID)

	// Терминальную заявку нельзя принять второй раз
	err = fs.AcceptFriendRequest(ctx, request.ID, bob.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.Conflict, errKind(t, err))

	// И дубликатов дружбы не появилось
	aliceFriends, err = fs.GetFriendList(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, aliceFriends, 1)
}

func TestFriendRequestRejectIsTerminal(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	fs := NewFriendService()

	alice := createTestUser(t)
	bob := createTestUser(t)

	request, err := fs.SendFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, fs.RejectFriendRequest(ctx, request.ID, bob.ID))

	err = fs.RejectFriendRequest(ctx, request.ID, bob.ID)
	assert.Equal(t, apperr.Conflict, errKind(t, err))
	err = fs.AcceptFriendRequest(ctx, request.ID, bob.ID)
	assert.Equal(t, apperr.Conflict, errKind(t, err))

	// Отклоненная заявка не мешает отправить новую
	_, err = fs.SendFriendRequest(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)
}

func TestFriendRequestValidation(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	fs := NewFriendService()

	alice := createTestUser(t)
	bob := createTestUser(t)

	_, err := fs.SendFriendRequest(ctx, alice.ID, alice.ID)
	assert.Equal(t, apperr.Validation, errKind(t, err))

	_, err = fs.SendFriendRequest(ctx, alice.ID, 99999)
	assert.Equal(t, apperr.NotFound, errKind(t, err))

	_, err = fs.SendFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	// Дубликат pending в любую сторону
	_, err = fs.SendFriendRequest(ctx, alice.ID, bob.ID)
	assert.Equal(t, apperr.Conflict, errKind(t, err))
	_, err = fs.SendFriendRequest(ctx, bob.ID, alice.ID)
	assert.Equal(t, apperr.Conflict, errKind(t, err))
}

func TestFriendRequestActorChecks(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	fs := NewFriendService()

	alice := createTestUser(t)
	bob := createTestUser(t)

	request, err := fs.SendFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	// Принять может только адресат
	err = fs.AcceptFriendRequest(ctx, request.ID, alice.ID)
	assert.Equal(t, apperr.Forbidden, errKind(t, err))

	// Отозвать может только отправитель
	err = fs.CancelFriendRequest(ctx, request.ID, bob.ID)
	assert.Equal(t, apperr.Forbidden, errKind(t, err))

	require.NoError(t, fs.CancelFriendRequest(ctx, request.ID, alice.ID))
	err = fs.CancelFriendRequest(ctx, request.ID, alice.ID)
	assert.Equal(t, apperr.Conflict, errKind(t, err))
}

func TestRemoveFriendSymmetric(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	fs := NewFriendService()

	alice := createTestUser(t)
	bob := createTestUser(t)

	request, err := fs.SendFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, fs.AcceptFriendRequest(ctx, request.ID, bob.ID))

	require.NoError(t, fs.RemoveFriend(ctx, alice.ID, bob.ID))

	aliceFriends, err := fs.GetFriendList(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, aliceFriends)
	bobFriends, err := fs.GetFriendList(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, bobFriends)

	// Повторное удаление - NotFound, не тихий успех
	err = fs.RemoveFriend(ctx, alice.ID, bob.ID)
	assert.Equal(t, apperr.NotFound, errKind(t, err))
}

func TestPendingRequestLists(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	fs := NewFriendService()

	alice := createTestUser(t)
	bob := createTestUser(t)
	carol := createTestUser(t)

	_, err := fs.SendFriendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = fs.SendFriendRequest(ctx, carol.ID, bob.ID)
	require.NoError(t, err)

	incoming, err := fs.GetPendingRequests(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, incoming, 2)

	sent, err := fs.GetSentRequests(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, bob.ID, sent[0].ReceiverID)
}
