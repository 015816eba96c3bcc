package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

var testNames = []string{"MolWt", "TPSA"}

type DescriptorCacheTestSuite struct {
	suite.Suite
	client *Client
	cache  *DescriptorCache
}

func (s *DescriptorCacheTestSuite) SetupTest() {
	s.client, _ = newTestClient(s.T())
	s.cache = NewDescriptorCache(s.client, time.Hour, logging.NewNopLogger())
}

func (s *DescriptorCacheTestSuite) TestMiss() {
	values, ok, err := s.cache.Get(context.Background(), "CCO", testNames)
	s.NoError(err)
	s.False(ok)
	s.Nil(values)
}

func (s *DescriptorCacheTestSuite) TestPutThenGet() {
	ctx := context.Background()
	want := map[string]float64{"MolWt": 46.069, "TPSA": 20.23}
	s.Require().NoError(s.cache.Put(ctx, "CCO", testNames, want))

	got, ok, err := s.cache.Get(ctx, "CCO", testNames)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(want, got)

	// Same structure under a different descriptor set is a separate entry.
	_, ok, err = s.cache.Get(ctx, "CCO", []string{"MolWt"})
	s.NoError(err)
	s.False(ok)
}

func (s *DescriptorCacheTestSuite) TestIncompleteEntryIsMiss() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Put(ctx, "CCO", testNames, map[string]float64{"MolWt": 46.069}))

	_, ok, err := s.cache.Get(ctx, "CCO", testNames)
	s.NoError(err)
	s.False(ok)
}

func (s *DescriptorCacheTestSuite) TestCorruptEntry() {
	ctx := context.Background()
	s.Require().NoError(s.client.Set(ctx, s.cache.key("CCO", testNames), "not json", 0).Err())

	_, ok, err := s.cache.Get(ctx, "CCO", testNames)
	s.False(ok)
	s.True(errors.IsCode(err, errors.ErrCodeSerialization))
}

func (s *DescriptorCacheTestSuite) TestInvalidate() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Put(ctx, "CCO", testNames, map[string]float64{"MolWt": 1, "TPSA": 2}))
	s.Require().NoError(s.cache.Invalidate(ctx, "CCO", testNames))

	_, ok, err := s.cache.Get(ctx, "CCO", testNames)
	s.NoError(err)
	s.False(ok)
}

func TestDescriptorCacheTestSuite(t *testing.T) {
	suite.Run(t, new(DescriptorCacheTestSuite))
}

func TestDescriptorCache_KeyLayout(t *testing.T) {
	db, _ := redismock.NewClientMock()
	c := NewDescriptorCache(&Client{rdb: db, prefix: "ivr:", logger: logging.NewNopLogger()}, 0, logging.NewNopLogger())

	sum := sha256.Sum256([]byte("MolWt,TPSA|CCO"))
	assert.Equal(t, "ivr:desc:"+hex.EncodeToString(sum[:]), c.key("CCO", testNames))
}

func TestDescriptorCache_ServerErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewDescriptorCache(&Client{rdb: db, prefix: "ivr:", logger: logging.NewNopLogger()}, time.Minute, logging.NewNopLogger())
	key := c.key("CCO", testNames)
	ctx := context.Background()

	mock.ExpectGet(key).SetErr(fmt.Errorf("connection reset"))
	_, ok, err := c.Get(ctx, "CCO", testNames)
	assert.False(t, ok)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))

	mock.ExpectSet(key, `{"MolWt":1,"TPSA":2}`, time.Minute).SetErr(fmt.Errorf("READONLY"))
	err = c.Put(ctx, "CCO", testNames, map[string]float64{"MolWt": 1, "TPSA": 2})
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))

	require.NoError(t, mock.ExpectationsWereMet())
}
