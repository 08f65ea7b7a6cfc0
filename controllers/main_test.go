package controllers

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"

	"stylistapi/dbhelper"
	"stylistapi/services"
	"stylistapi/test"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	// enrichment runs inline so tests can assert on its effects
	runDetached = func(f func()) { f() }
	os.Exit(m.Run())
}

type testServer struct {
	e        *echo.Echo
	db       *gorm.DB
	reasoner *test.FakeReasoner
	enqueuer *test.RecordingEnqueuer
	storage  *test.FakeStorage
}

func newTestServer(t *testing.T, replies ...test.ReasonerReply) *testServer {
	db := dbhelper.SetupTestDB()
	store, err := services.NewCacheUsageStore()
	require.NoError(t, err)
	storage := &test.FakeStorage{}
	urlCache, err := services.NewURLCacheService(storage)
	require.NoError(t, err)
	reasoner := test.NewFakeReasoner(replies...)
	enqueuer := &test.RecordingEnqueuer{}
	e := SetupServer(db, test.Config(), reasoner, services.NewRateLimiter(store), enqueuer, urlCache)
	return &testServer{e: e, db: db, reasoner: reasoner, enqueuer: enqueuer, storage: storage}
}

func (s *testServer) do(t *testing.T, method, target string, userID uint, body interface{}) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, test.NewJSONAuthRequest(method, target, userID, body))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
