package rating

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/dbtest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	return NewService(NewRepository(db, nil)), db
}

func rowCount(t *testing.T, db *gorm.DB, id string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&Rating{}).Where("id = ?", id).Count(&n).Error)
	return n
}

func assertState(t *testing.T, r Rating, sum, count int64, avg float64) {
	t.Helper()
	assert.Equal(t, sum, r.Sum, "sum")
	assert.Equal(t, count, r.Count, "count")
	assert.InDelta(t, avg, r.Avg(), 1e-9, "avg")
}

func TestVoteScenarios(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	r, err := svc.Vote(ctx, Vote{ID: "g:1", Value: 3, Prev: 0})
	require.NoError(t, err)
	assertState(t, r, 3, 1, 3)

	r, err = svc.Get(ctx, "g:1")
	require.NoError(t, err)
	assertState(t, r, 3, 1, 3)

	// 把3星改成4星
	r, err = svc.Vote(ctx, Vote{ID: "g:1", Value: 4, Prev: 3})
	require.NoError(t, err)
	assertState(t, r, 4, 1, 4)

	// 撤回
	r, err = svc.Vote(ctx, Vote{ID: "g:1", Value: 0, Prev: 4})
	require.NoError(t, err)
	assertState(t, r, 0, 0, 0)
	assert.Equal(t, "g:1", r.ID)
	assert.Zero(t, rowCount(t, db, "g:1"), "票数归零后记录应被删除")

	r, err = svc.Get(ctx, "g:1")
	require.NoError(t, err)
	assertState(t, r, 0, 0, 0)
}

func TestVoteNoopDoesNotCreateRow(t *testing.T) {
	svc, db := newTestService(t)
	r, err := svc.Vote(context.Background(), Vote{ID: "g:2", Value: 0, Prev: 0})
	require.NoError(t, err)
	assertState(t, r, 0, 0, 0)
	assert.Zero(t, rowCount(t, db, "g:2"))
}

func TestVoteMultipleVoters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, v := range []int{4, 3, 2} {
		_, err := svc.Vote(ctx, Vote{ID: "g:3", Value: v})
		require.NoError(t, err)
	}
	r, err := svc.Get(ctx, "g:3")
	require.NoError(t, err)
	assertState(t, r, 9, 3, 3)

	// 其中一人撤回2星
	r, err = svc.Vote(ctx, Vote{ID: "g:3", Value: 0, Prev: 2})
	require.NoError(t, err)
	assertState(t, r, 7, 2, 3.5)
}

func TestVoteWithdrawOnAbsentRowFloors(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// 客户端上报了一个服务端并不存在的旧票
	r, err := svc.Vote(ctx, Vote{ID: "g:4", Value: 0, Prev: 3})
	require.NoError(t, err)
	assertState(t, r, 0, 0, 0)
	assert.Zero(t, rowCount(t, db, "g:4"))

	r, err = svc.Vote(ctx, Vote{ID: "g:4", Value: 2, Prev: 4})
	require.NoError(t, err)
	assertState(t, r, 2, 1, 2)

	// 上报的旧票比总和还大：sum 下限为0
	r, err = svc.Vote(ctx, Vote{ID: "g:4", Value: 1, Prev: 4})
	require.NoError(t, err)
	assertState(t, r, 1, 1, 1)
}

func TestVotePrevOutOfRangeIsClamped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Vote(ctx, Vote{ID: "g:5", Value: 2})
	require.NoError(t, err)
	r, err := svc.Vote(ctx, Vote{ID: "g:5", Value: 3, Prev: 9})
	require.NoError(t, err)
	assertState(t, r, 5, 2, 2.5)
}

func TestVoteValidation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	for _, v := range []Vote{
		{ID: "g:6", Value: 5},
		{ID: "g:6", Value: -1},
		{ID: "", Value: 3},
	} {
		_, err := svc.Vote(ctx, v)
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	}
	assert.Zero(t, rowCount(t, db, "g:6"))
}

func TestConcurrentVotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	const n = 40

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Vote(ctx, Vote{ID: "g:hot", Value: i%4 + 1})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	r, err := svc.Get(ctx, "g:hot")
	require.NoError(t, err)
	assertState(t, r, 100, n, 2.5)
}

func TestParseValueAndPrev(t *testing.T) {
	v, err := ParseValue("")
	require.NoError(t, err)
	assert.Zero(t, v)
	v, err = ParseValue(" 4 ")
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	for _, raw := range []string{"5", "-1", "2.5", "abc"} {
		_, err = ParseValue(raw)
		assert.True(t, apperr.IsValidation(err), raw)
	}

	assert.Equal(t, 3, ParsePrev("3"))
	assert.Zero(t, ParsePrev(""))
	assert.Zero(t, ParsePrev("x"))
	assert.Zero(t, ParsePrev("7"))
	assert.Zero(t, ParsePrev("-2"))
}

func TestRatingHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	r := gin.New()
	r.GET("/api/rating4", NewHandler(svc, zap.NewNop()).Rating)

	get := func(url string) (int, map[string]any) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return w.Code, body
	}

	code, body := get("/api/rating4?op=vote&id=g:42&v=3")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(3), body["sum"])
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, float64(3), body["avg"])

	code, body = get("/api/rating4?op=vote&id=g:42&v=4&prev=3")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(4), body["sum"])

	code, body = get("/api/rating4?id=g:42")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(4), body["avg"])

	code, body = get("/api/rating4?op=vote&id=g:42&v=9")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["ok"])

	code, _ = get("/api/rating4?op=drop&id=g:42")
	assert.Equal(t, http.StatusBadRequest, code)
}
