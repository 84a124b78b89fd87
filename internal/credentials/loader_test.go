// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"errors"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"observability-dashboard/internal/config"
	"testing"
	"time"
)

type rowMock struct {
	attributes string
	err        error
}

func (r rowMock) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*[]byte) = []byte(r.attributes)
	return nil
}

type querierMock struct {
	mock.Mock
}

func (q *querierMock) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	called := q.Called(args...)
	return called.Get(0).(pgx.Row)
}

func TestDecode_CachesForTtl(t *testing.T) {
	var assertions = assert.New(t)

	querier := new(querierMock)
	querier.On("QueryRow", "GLOBAL", ModuleDashboard).Return(rowMock{attributes: `{"auth":{"token":"secret"}}`})

	loader := NewLoader(querier, time.Minute)
	var now = time.Now()
	loader.now = func() time.Time { return now }

	var target struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}

	assertions.NoError(loader.Decode(context.Background(), "global", ModuleDashboard, &target))
	assertions.Equal("secret", target.Auth.Token)
	assertions.NoError(loader.Decode(context.Background(), "GLOBAL", ModuleDashboard, &target))
	querier.AssertNumberOfCalls(t, "QueryRow", 1)

	now = now.Add(2 * time.Minute)
	assertions.NoError(loader.Decode(context.Background(), "GLOBAL", ModuleDashboard, &target))
	querier.AssertNumberOfCalls(t, "QueryRow", 2)
}

func TestDecode_ServesStaleValueOnError(t *testing.T) {
	var assertions = assert.New(t)

	querier := new(querierMock)
	querier.On("QueryRow", "DEV", ModuleDatabase).Return(rowMock{attributes: `{"host":"db.local"}`}).Once()
	querier.On("QueryRow", "DEV", ModuleDatabase).Return(rowMock{err: errors.New("connection reset")})

	loader := NewLoader(querier, time.Minute)
	var now = time.Now()
	loader.now = func() time.Time { return now }

	var target databaseAttributes
	assertions.NoError(loader.Decode(context.Background(), "dev", ModuleDatabase, &target))

	now = now.Add(time.Hour)
	target = databaseAttributes{}
	assertions.NoError(loader.Decode(context.Background(), "dev", ModuleDatabase, &target))
	assertions.Equal("db.local", target.Host)

	loader.Clear()
	assertions.Error(loader.Decode(context.Background(), "dev", ModuleDatabase, &target))
}

func TestDecode_NotFound(t *testing.T) {
	querier := new(querierMock)
	querier.On("QueryRow", "PROD", ModuleDatabase).Return(rowMock{err: pgx.ErrNoRows})

	var target databaseAttributes
	err := NewLoader(querier, 0).Decode(context.Background(), "prod", ModuleDatabase, &target)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatabaseFor(t *testing.T) {
	var assertions = assert.New(t)

	querier := new(querierMock)
	querier.On("QueryRow", "DEV", ModuleDatabase).Return(rowMock{attributes: `{"host":"dev-db","port":5433,"database":"bulwark","user":"app","password":"pw"}`})
	querier.On("QueryRow", "PROD", ModuleDatabase).Return(rowMock{err: pgx.ErrNoRows})
	querier.On("QueryRow", "STAGING", ModuleDatabase).Return(rowMock{err: pgx.ErrNoRows})

	source := DatabaseSource{
		Loader:   NewLoader(querier, time.Minute),
		Fallback: map[string]config.Database{"prod": {Host: "prod-db", Database: "bulwark"}},
	}

	dev, ok := source.DatabaseFor(context.Background(), "DEV")
	assertions.True(ok)
	assertions.Equal(config.Database{Host: "dev-db", Port: 5433, Database: "bulwark", User: "app", Password: "pw"}, dev)

	prod, ok := source.DatabaseFor(context.Background(), "PROD")
	assertions.True(ok)
	assertions.Equal("prod-db", prod.Host)

	_, ok = source.DatabaseFor(context.Background(), "STAGING")
	assertions.False(ok)
}
