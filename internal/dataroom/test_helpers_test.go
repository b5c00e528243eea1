package dataroom

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Laisky/dataroom/internal/library/blobstore"
	"github.com/Laisky/dataroom/library/db/sqlite"
	"github.com/Laisky/dataroom/library/jwt"
	"github.com/Laisky/dataroom/library/log"
)

var testEpoch = time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)

// samplePDF is the smallest payload that passes the magic byte check.
var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

// stubExtractor returns fixed text for every document.
type stubExtractor struct {
	text string
}

// Extract returns the configured text.
func (s stubExtractor) Extract(context.Context, []byte) string { return s.text }

// tickClock advances by step on every call so created_at values are distinct.
type tickClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newTickClock(start time.Time, step time.Duration) *tickClock {
	return &tickClock{now: start, step: step}
}

// Now returns the next tick.
func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// newTestDB creates an in-memory sqlite database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", t.Name(), time.Now().UTC().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// testEnv bundles a service with its storage root.
type testEnv struct {
	svc   *Service
	auth  *AuthService
	db    *gorm.DB
	blobs *blobstore.FSStore
	clock *tickClock
}

// newTestEnv constructs services with deterministic dependencies.
func newTestEnv(t *testing.T, settings Settings, text string) *testEnv {
	t.Helper()
	db := newTestDB(t)
	blobs, err := blobstore.NewFSStore(t.TempDir())
	require.NoError(t, err)

	clock := newTickClock(testEpoch, time.Second)
	svc, err := NewService(db, settings, blobs, stubExtractor{text: text}, log.Logger.Named("test"), clock.Now)
	require.NoError(t, err)

	tokens, err := jwt.New([]byte("test-secret"), time.Hour)
	require.NoError(t, err)
	auth, err := NewAuthService(db, tokens, nil, AuthSettings{
		LoginMaxFailures: 3,
		LoginWindow:      time.Minute,
		BcryptCost:       bcrypt.MinCost,
	}, log.Logger.Named("test_auth"), clock.Now)
	require.NoError(t, err)

	return &testEnv{svc: svc, auth: auth, db: db, blobs: blobs, clock: clock}
}

// mustUser inserts a user and returns its id.
func (e *testEnv) mustUser(t *testing.T, email string) int64 {
	t.Helper()
	user := User{Email: email, PasswordHash: "x", Theme: ThemeLight, CreatedAt: e.clock.Now()}
	require.NoError(t, e.db.Create(&user).Error)
	return user.ID
}

// mustRoom creates a dataroom and returns it.
func (e *testEnv) mustRoom(t *testing.T, userID int64, name string) *DataroomItem {
	t.Helper()
	room, _, err := e.svc.CreateDataroom(context.Background(), userID, name)
	require.NoError(t, err)
	require.NotNil(t, room.RootFolderID)
	return room
}

// mustFolder creates a folder under parentID.
func (e *testEnv) mustFolder(t *testing.T, userID int64, roomID, parentID int64, name string) *FolderItem {
	t.Helper()
	folder, _, err := e.svc.CreateFolder(context.Background(), userID, roomID, parentID, name)
	require.NoError(t, err)
	return folder
}

// mustUpload uploads samplePDF under name.
func (e *testEnv) mustUpload(t *testing.T, userID, folderID int64, name string) *UploadResult {
	t.Helper()
	result, _, err := e.svc.UploadFile(context.Background(), userID, folderID, name, bytes.NewReader(samplePDF))
	require.NoError(t, err)
	return result
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	typed, ok := AsError(err)
	require.True(t, ok, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code, typed.Message)
}
