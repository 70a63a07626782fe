// Package mocks provides testify mocks for the hive package.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vsc-eco/vsc-client-go/pkg/hive"
)

type DelegatedSigner struct {
	mock.Mock
}

var _ hive.IDelegatedSigner = (*DelegatedSigner)(nil)

func (m *DelegatedSigner) Login(ctx context.Context, provider hive.Provider, username string, opts *hive.LoginOptions) hive.LoginResult {
	args := m.Called(ctx, provider, username, opts)
	return args.Get(0).(hive.LoginResult)
}

func (m *DelegatedSigner) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *DelegatedSigner) IsLoggedIn() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *DelegatedSigner) CurrentUser() string {
	args := m.Called()
	return args.String(0)
}

func (m *DelegatedSigner) SignAndSubmitJSON(ctx context.Context, keyType hive.KeyType, id string, payload interface{}) hive.OperationResult {
	args := m.Called(ctx, keyType, id, payload)
	return args.Get(0).(hive.OperationResult)
}

func (m *DelegatedSigner) OnAccountChanged(callback func(username string)) {
	m.Called(callback)
}
