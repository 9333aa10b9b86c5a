// Package mocks provides testify mocks for the storage and transport
// interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence"
)

// MockPersistence is a mock implementation of the persistence.Persistence
// interface.
type MockPersistence struct {
	mock.Mock

	Plays        *MockPlayRepository
	Workstreams  *MockWorkstreamRepository
	States       *MockExecutionStateRepository
	ActivityFeed *MockActivityRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Plays:        &MockPlayRepository{},
		Workstreams:  &MockWorkstreamRepository{},
		States:       &MockExecutionStateRepository{},
		ActivityFeed: &MockActivityRepository{},
	}
}

func (m *MockPersistence) PlayRepository() persistence.PlayRepository {
	return m.Plays
}

func (m *MockPersistence) WorkstreamRepository() persistence.WorkstreamRepository {
	return m.Workstreams
}

func (m *MockPersistence) ExecutionStateRepository() persistence.ExecutionStateRepository {
	return m.States
}

func (m *MockPersistence) ActivityRepository() persistence.ActivityRepository {
	return m.ActivityFeed
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

type MockPlayRepository struct {
	mock.Mock
}

func (m *MockPlayRepository) Plays(ctx context.Context) ([]*models.Play, error) {
	args := m.Called(ctx)

	plays, _ := args.Get(0).([]*models.Play)

	return plays, args.Error(1)
}

func (m *MockPlayRepository) PlayByID(ctx context.Context, id string) (*models.Play, error) {
	args := m.Called(ctx, id)

	play, _ := args.Get(0).(*models.Play)

	return play, args.Error(1)
}

func (m *MockPlayRepository) SavePlay(ctx context.Context, play *models.Play) error {
	args := m.Called(ctx, play)

	return args.Error(0)
}

type MockWorkstreamRepository struct {
	mock.Mock
}

func (m *MockWorkstreamRepository) Workstreams(ctx context.Context) ([]*models.Workstream, error) {
	args := m.Called(ctx)

	workstreams, _ := args.Get(0).([]*models.Workstream)

	return workstreams, args.Error(1)
}

func (m *MockWorkstreamRepository) WorkstreamByID(ctx context.Context, id string) (*models.Workstream, error) {
	args := m.Called(ctx, id)

	workstream, _ := args.Get(0).(*models.Workstream)

	return workstream, args.Error(1)
}

func (m *MockWorkstreamRepository) SaveWorkstream(ctx context.Context, workstream *models.Workstream) error {
	args := m.Called(ctx, workstream)

	return args.Error(0)
}

type MockExecutionStateRepository struct {
	mock.Mock
}

func (m *MockExecutionStateRepository) NodeExecutionStates(ctx context.Context, workstreamID, playID string) ([]*models.NodeExecutionState, error) {
	args := m.Called(ctx, workstreamID, playID)

	states, _ := args.Get(0).([]*models.NodeExecutionState)

	return states, args.Error(1)
}

func (m *MockExecutionStateRepository) UpsertNodeExecutionState(ctx context.Context, state *models.NodeExecutionState) error {
	args := m.Called(ctx, state)

	return args.Error(0)
}

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) AppendActivity(ctx context.Context, entry *models.ActivityEntry) error {
	args := m.Called(ctx, entry)

	return args.Error(0)
}

func (m *MockActivityRepository) ActivityByWorkstream(ctx context.Context, workstreamID string) ([]*models.ActivityEntry, error) {
	args := m.Called(ctx, workstreamID)

	entries, _ := args.Get(0).([]*models.ActivityEntry)

	return entries, args.Error(1)
}
