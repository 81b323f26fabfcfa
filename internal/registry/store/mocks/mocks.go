// Package mocks provides a gomock-backed Store double for orchestrator
// tests, kept in sync with store.Store by hand.
package mocks

import (
	"context"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"wrapregistry/internal/events"
	"wrapregistry/internal/registry/models"
	id "wrapregistry/pkg/domain"
)

// MockStore is a mock of the store.Store interface.
type MockStore struct {
	ctrl     *gomock.Controller
	recorder *MockStoreMockRecorder
}

// MockStoreMockRecorder is the mock recorder for MockStore.
type MockStoreMockRecorder struct {
	mock *MockStore
}

// NewMockStore creates a new mock instance.
func NewMockStore(ctrl *gomock.Controller) *MockStore {
	mock := &MockStore{ctrl: ctrl}
	mock.recorder = &MockStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockStore) EXPECT() *MockStoreMockRecorder {
	return m.recorder
}

func (m *MockStore) Exists(ctx context.Context, user id.AccountID, period uint64) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Exists", ctx, user, period)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockStoreMockRecorder) Exists(ctx, user, period any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Exists", reflect.TypeOf((*MockStore)(nil).Exists), ctx, user, period)
}

func (m *MockStore) Get(ctx context.Context, user id.AccountID, period uint64) (*models.WrapRecord, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", ctx, user, period)
	ret0, _ := ret[0].(*models.WrapRecord)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockStoreMockRecorder) Get(ctx, user, period any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockStore)(nil).Get), ctx, user, period)
}

func (m *MockStore) Put(ctx context.Context, record *models.WrapRecord) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Put", ctx, record)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockStoreMockRecorder) Put(ctx, record any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Put", reflect.TypeOf((*MockStore)(nil).Put), ctx, record)
}

func (m *MockStore) IncrementCount(ctx context.Context, user id.AccountID) (uint64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IncrementCount", ctx, user)
	ret0, _ := ret[0].(uint64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockStoreMockRecorder) IncrementCount(ctx, user any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IncrementCount", reflect.TypeOf((*MockStore)(nil).IncrementCount), ctx, user)
}

func (m *MockStore) Count(ctx context.Context, user id.AccountID) (uint64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Count", ctx, user)
	ret0, _ := ret[0].(uint64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockStoreMockRecorder) Count(ctx, user any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Count", reflect.TypeOf((*MockStore)(nil).Count), ctx, user)
}

func (m *MockStore) GetAdmin(ctx context.Context) (*models.AdminRecord, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetAdmin", ctx)
	ret0, _ := ret[0].(*models.AdminRecord)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockStoreMockRecorder) GetAdmin(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetAdmin", reflect.TypeOf((*MockStore)(nil).GetAdmin), ctx)
}

func (m *MockStore) InitAdmin(ctx context.Context, record *models.AdminRecord) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "InitAdmin", ctx, record)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockStoreMockRecorder) InitAdmin(ctx, record any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "InitAdmin", reflect.TypeOf((*MockStore)(nil).InitAdmin), ctx, record)
}

func (m *MockStore) SetAdmin(ctx context.Context, record *models.AdminRecord) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SetAdmin", ctx, record)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockStoreMockRecorder) SetAdmin(ctx, record any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetAdmin", reflect.TypeOf((*MockStore)(nil).SetAdmin), ctx, record)
}

func (m *MockStore) AppendEvent(ctx context.Context, event events.Event) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AppendEvent", ctx, event)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockStoreMockRecorder) AppendEvent(ctx, event any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AppendEvent", reflect.TypeOf((*MockStore)(nil).AppendEvent), ctx, event)
}

func (m *MockStore) ListUnpublishedEvents(ctx context.Context, limit int) ([]events.Event, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListUnpublishedEvents", ctx, limit)
	ret0, _ := ret[0].([]events.Event)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockStoreMockRecorder) ListUnpublishedEvents(ctx, limit any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListUnpublishedEvents", reflect.TypeOf((*MockStore)(nil).ListUnpublishedEvents), ctx, limit)
}

func (m *MockStore) MarkEventsPublished(ctx context.Context, ids []uuid.UUID) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MarkEventsPublished", ctx, ids)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockStoreMockRecorder) MarkEventsPublished(ctx, ids any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MarkEventsPublished", reflect.TypeOf((*MockStore)(nil).MarkEventsPublished), ctx, ids)
}

func (m *MockStore) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RunAtomic", ctx, fn)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockStoreMockRecorder) RunAtomic(ctx, fn any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RunAtomic", reflect.TypeOf((*MockStore)(nil).RunAtomic), ctx, fn)
}
