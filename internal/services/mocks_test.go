package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
)

// cacheMock implements cache.Cache.
type cacheMock struct {
	mock.Mock
}

func newCacheMock(t *testing.T) *cacheMock {
	m := &cacheMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *cacheMock) Get(ctx context.Context, key string, value any) (bool, error) {
	args := m.Called(ctx, key, value)

	return args.Bool(0), args.Error(1)
}

func (m *cacheMock) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)

	return args.Error(0)
}

func (m *cacheMock) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)

	return args.Error(0)
}

// emailerMock implements sendgrid.EmailService.
type emailerMock struct {
	mock.Mock
}

func newEmailerMock(t *testing.T) *emailerMock {
	m := &emailerMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *emailerMock) Send(ctx context.Context, to, subject, plainText, htmlContent string) error {
	args := m.Called(ctx, to, subject, plainText, htmlContent)

	return args.Error(0)
}
