package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/checkin-api/internal/domain"
	"github.com/vietanh2810/checkin-api/internal/repository"
)

func TestEventService_CreateEvent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.createUser(t, "u@example.com", 0, false)

	_, err := e.eventSvc.CreateEvent(ctx, user, domain.Event{Name: "Nope", Date: epoch})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	assert.Equal(t, domain.EventStatusScheduled, e.event.Status)

	events, err := e.eventSvc.GetEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	_, err = e.eventSvc.GetEvent(ctx, 404)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestEventService_Activations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.createUser(t, "u@example.com", 0, false)

	_, err := e.eventSvc.CreateActivation(ctx, user, domain.Activation{EventID: e.event.ID, Name: "A", Points: 1})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = e.eventSvc.CreateActivation(ctx, e.admin, domain.Activation{EventID: 404, Name: "A", Points: 1})
	assert.ErrorIs(t, err, ErrEventNotFound)

	a := e.createActivation(t, "A", 10, "")
	assert.Equal(t, domain.ActivationStatusActive, a.Status)

	status := domain.ActivationStatusInactive
	_, err = e.eventSvc.UpdateActivation(ctx, user, a.ID, repository.ActivationUpdate{Status: &status})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err := e.eventSvc.UpdateActivation(ctx, e.admin, a.ID, repository.ActivationUpdate{Status: &status})
	require.NoError(t, err)
	assert.False(t, updated.IsActive())

	_, err = e.eventSvc.UpdateActivation(ctx, e.admin, 404, repository.ActivationUpdate{Status: &status})
	assert.ErrorIs(t, err, ErrActivationNotFound)

	list, err := e.eventSvc.GetActivations(ctx, e.event.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	ok, err := e.eventSvc.CanManageEvent(ctx, user, e.event.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
