package contract

import (
	"context"
	"io"

	"github.com/huangsam/svncoord/schema"
	"github.com/stretchr/testify/mock"
)

// MockRepositoryConnector is a mock implementation of RepositoryConnector for testing.
type MockRepositoryConnector struct {
	mock.Mock
}

var _ RepositoryConnector = &MockRepositoryConnector{} // Compile-time check

// Open implements the RepositoryConnector interface.
func (m *MockRepositoryConnector) Open(ctx context.Context, url string) (RepositoryTransport, error) {
	ret := m.Called(ctx, url)
	t, _ := ret.Get(0).(RepositoryTransport)
	return t, ret.Error(1)
}

// MockRepositoryTransport is a mock implementation of RepositoryTransport for testing.
type MockRepositoryTransport struct {
	mock.Mock
}

var _ RepositoryTransport = &MockRepositoryTransport{} // Compile-time check

// Location implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) Location() string {
	return m.Called().String(0)
}

// Info implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) Info(ctx context.Context) (schema.RepositoryInfo, error) {
	ret := m.Called(ctx)
	info, _ := ret.Get(0).(schema.RepositoryInfo)
	return info, ret.Error(1)
}

// LatestRevision implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) LatestRevision(ctx context.Context) (int64, error) {
	ret := m.Called(ctx)
	rev, _ := ret.Get(0).(int64)
	return rev, ret.Error(1)
}

// HasCapability implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) HasCapability(c Capability) bool {
	return m.Called(c).Bool(0)
}

// CheckPath implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) CheckPath(ctx context.Context, path string, rev int64) (schema.NodeKind, error) {
	ret := m.Called(ctx, path, rev)
	kind, _ := ret.Get(0).(schema.NodeKind)
	return kind, ret.Error(1)
}

// GetFile implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) GetFile(ctx context.Context, path string, rev int64) ([]byte, map[string]string, error) {
	ret := m.Called(ctx, path, rev)
	content, _ := ret.Get(0).([]byte)
	props, _ := ret.Get(1).(map[string]string)
	return content, props, ret.Error(2)
}

// GetDir implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) GetDir(ctx context.Context, path string, rev int64) ([]schema.DirEntry, map[string]string, error) {
	ret := m.Called(ctx, path, rev)
	entries, _ := ret.Get(0).([]schema.DirEntry)
	props, _ := ret.Get(1).(map[string]string)
	return entries, props, ret.Error(2)
}

// LocationSegments implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) LocationSegments(ctx context.Context, path string, peg, start, end int64) ([]schema.LocationSegment, error) {
	ret := m.Called(ctx, path, peg, start, end)
	segments, _ := ret.Get(0).([]schema.LocationSegment)
	return segments, ret.Error(1)
}

// Log implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) Log(ctx context.Context, paths []string, start, end int64) ([]schema.LogEntry, error) {
	ret := m.Called(ctx, paths, start, end)
	entries, _ := ret.Get(0).([]schema.LogEntry)
	return entries, ret.Error(1)
}

// CommitEditor implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) CommitEditor(ctx context.Context, opts CommitEditorOptions) (Editor, error) {
	ret := m.Called(ctx, opts)
	editor, _ := ret.Get(0).(Editor)
	return editor, ret.Error(1)
}

// Lock implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) Lock(ctx context.Context, targets map[string]int64, comment string, steal bool) ([]schema.Lock, error) {
	ret := m.Called(ctx, targets, comment, steal)
	locks, _ := ret.Get(0).([]schema.Lock)
	return locks, ret.Error(1)
}

// Unlock implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) Unlock(ctx context.Context, tokens map[string]string, breakLock bool) error {
	return m.Called(ctx, tokens, breakLock).Error(0)
}

// Diff implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) Diff(ctx context.Context, req DiffRequest) ([]schema.TreeChange, error) {
	ret := m.Called(ctx, req)
	changes, _ := ret.Get(0).([]schema.TreeChange)
	return changes, ret.Error(1)
}

// Close implements the RepositoryTransport interface.
func (m *MockRepositoryTransport) Close() error {
	return m.Called().Error(0)
}

// MockEditor is a mock implementation of Editor for testing.
type MockEditor struct {
	mock.Mock
}

var _ Editor = &MockEditor{} // Compile-time check

// OpenRoot implements the Editor interface.
func (m *MockEditor) OpenRoot(ctx context.Context, rev int64) error {
	return m.Called(ctx, rev).Error(0)
}

// OpenDir implements the Editor interface.
func (m *MockEditor) OpenDir(ctx context.Context, path string, rev int64) error {
	return m.Called(ctx, path, rev).Error(0)
}

// AddDir implements the Editor interface.
func (m *MockEditor) AddDir(ctx context.Context, path string, copyFromURL string, copyFromRev int64) error {
	return m.Called(ctx, path, copyFromURL, copyFromRev).Error(0)
}

// CloseDir implements the Editor interface.
func (m *MockEditor) CloseDir(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// DeleteEntry implements the Editor interface.
func (m *MockEditor) DeleteEntry(ctx context.Context, path string, rev int64) error {
	return m.Called(ctx, path, rev).Error(0)
}

// AddFile implements the Editor interface.
func (m *MockEditor) AddFile(ctx context.Context, path string, copyFromURL string, copyFromRev int64) error {
	return m.Called(ctx, path, copyFromURL, copyFromRev).Error(0)
}

// OpenFile implements the Editor interface.
func (m *MockEditor) OpenFile(ctx context.Context, path string, rev int64) error {
	return m.Called(ctx, path, rev).Error(0)
}

// ChangeDirProperty implements the Editor interface.
func (m *MockEditor) ChangeDirProperty(ctx context.Context, name string, value *string) error {
	return m.Called(ctx, name, value).Error(0)
}

// ChangeFileProperty implements the Editor interface.
func (m *MockEditor) ChangeFileProperty(ctx context.Context, path string, name string, value *string) error {
	return m.Called(ctx, path, name, value).Error(0)
}

// ApplyText implements the Editor interface.
func (m *MockEditor) ApplyText(ctx context.Context, path string, baseChecksum string, content io.Reader) error {
	return m.Called(ctx, path, baseChecksum, content).Error(0)
}

// CloseFile implements the Editor interface.
func (m *MockEditor) CloseFile(ctx context.Context, path string, textChecksum string) error {
	return m.Called(ctx, path, textChecksum).Error(0)
}

// CloseEdit implements the Editor interface.
func (m *MockEditor) CloseEdit(ctx context.Context) (schema.CommitInfo, error) {
	ret := m.Called(ctx)
	info, _ := ret.Get(0).(schema.CommitInfo)
	return info, ret.Error(1)
}

// AbortEdit implements the Editor interface.
func (m *MockEditor) AbortEdit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockWorkingCopyStore is a mock implementation of WorkingCopyStore for testing.
type MockWorkingCopyStore struct {
	mock.Mock
}

var _ WorkingCopyStore = &MockWorkingCopyStore{} // Compile-time check

// Open implements the WorkingCopyStore interface.
func (m *MockWorkingCopyStore) Open(ctx context.Context, path string, write bool, depth int) (WCAccess, error) {
	ret := m.Called(ctx, path, write, depth)
	access, _ := ret.Get(0).(WCAccess)
	return access, ret.Error(1)
}

// Root implements the WorkingCopyStore interface.
func (m *MockWorkingCopyStore) Root(path string) (string, error) {
	ret := m.Called(path)
	return ret.String(0), ret.Error(1)
}

// MockMessageProvider is a mock implementation of MessageProvider for testing.
type MockMessageProvider struct {
	mock.Mock
}

var _ MessageProvider = &MockMessageProvider{} // Compile-time check

// CommitMessage implements the MessageProvider interface.
func (m *MockMessageProvider) CommitMessage(ctx context.Context, items []schema.CommitItem) (string, bool, error) {
	ret := m.Called(ctx, items)
	return ret.String(0), ret.Bool(1), ret.Error(2)
}

// MockEventSink is a mock implementation of EventSink for testing.
type MockEventSink struct {
	mock.Mock
}

var _ EventSink = &MockEventSink{} // Compile-time check

// Handle implements the EventSink interface.
func (m *MockEventSink) Handle(ctx context.Context, event schema.Event) {
	m.Called(ctx, event)
}

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ StoreManager = &MockStoreManager{} // Compile-time check

// GetJournalStore implements the StoreManager interface.
func (m *MockStoreManager) GetJournalStore() JournalStore {
	ret := m.Called()
	store, _ := ret.Get(0).(JournalStore)
	return store
}

// MockJournalStore is a mock implementation of JournalStore for testing.
type MockJournalStore struct {
	mock.Mock
}

var _ JournalStore = &MockJournalStore{} // Compile-time check

// RecordCommit implements the JournalStore interface.
func (m *MockJournalStore) RecordCommit(rec schema.JournalRecord, items []schema.JournalItemRecord) error {
	return m.Called(rec, items).Error(0)
}

// ListCommits implements the JournalStore interface.
func (m *MockJournalStore) ListCommits(limit int) ([]schema.JournalRecord, error) {
	ret := m.Called(limit)
	records, _ := ret.Get(0).([]schema.JournalRecord)
	return records, ret.Error(1)
}

// ListItems implements the JournalStore interface.
func (m *MockJournalStore) ListItems(txnID string) ([]schema.JournalItemRecord, error) {
	ret := m.Called(txnID)
	items, _ := ret.Get(0).([]schema.JournalItemRecord)
	return items, ret.Error(1)
}

// PutMergeInfo implements the JournalStore interface.
func (m *MockJournalStore) PutMergeInfo(rec schema.MergeInfoRecord) error {
	return m.Called(rec).Error(0)
}

// GetMergeInfo implements the JournalStore interface.
func (m *MockJournalStore) GetMergeInfo(target string) (schema.MergeInfoRecord, error) {
	ret := m.Called(target)
	rec, _ := ret.Get(0).(schema.MergeInfoRecord)
	return rec, ret.Error(1)
}

// ListMergeInfo implements the JournalStore interface.
func (m *MockJournalStore) ListMergeInfo() ([]schema.MergeInfoRecord, error) {
	ret := m.Called()
	records, _ := ret.Get(0).([]schema.MergeInfoRecord)
	return records, ret.Error(1)
}

// GetStatus implements the JournalStore interface.
func (m *MockJournalStore) GetStatus() (schema.JournalStatus, error) {
	ret := m.Called()
	status, _ := ret.Get(0).(schema.JournalStatus)
	return status, ret.Error(1)
}

// Close implements the JournalStore interface.
func (m *MockJournalStore) Close() error {
	return m.Called().Error(0)
}
