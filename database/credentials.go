package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// DefaultTokenScope is the Entra ID scope for Azure Database for PostgreSQL.
const DefaultTokenScope = "https://ossrdbms-aad.database.windows.net/.default"

// PasswordSource yields the password for a new database connection.
type PasswordSource interface {
	Password(ctx context.Context) (string, error)
}

// StaticPassword is a fixed password.
type StaticPassword string

func (p StaticPassword) Password(context.Context) (string, error) { return string(p), nil }

// TokenPassword uses an Azure access token as the password. Tokens are reused until
// shortly before they expire.
type TokenPassword struct {
	cred  azcore.TokenCredential
	scope string
	now   func() time.Time

	mu     sync.Mutex
	cached azcore.AccessToken
}

// refreshSkew renews tokens this long before ExpiresOn.
const refreshSkew = 5 * time.Minute

func NewTokenPassword(cred azcore.TokenCredential, scope string) (*TokenPassword, error) {
	if cred == nil {
		return nil, errors.New("token credential is required")
	}
	if scope == "" {
		scope = DefaultTokenScope
	}
	return &TokenPassword{cred: cred, scope: scope, now: time.Now}, nil
}

// AzureCLICredential chains the Azure CLI credential, i.e. whatever `az login` left
// behind on this machine.
func AzureCLICredential() (azcore.TokenCredential, error) {
	cli, err := azidentity.NewAzureCLICredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure cli credential: %w", err)
	}
	chain, err := azidentity.NewChainedTokenCredential([]azcore.TokenCredential{cli}, nil)
	if err != nil {
		return nil, fmt.Errorf("chained credential: %w", err)
	}
	return chain, nil
}

// NewAzureCLIPassword is a TokenPassword backed by AzureCLICredential.
func NewAzureCLIPassword(scope string) (*TokenPassword, error) {
	cred, err := AzureCLICredential()
	if err != nil {
		return nil, err
	}
	return NewTokenPassword(cred, scope)
}

func (p *TokenPassword) Password(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached.Token != "" && p.now().Add(refreshSkew).Before(p.cached.ExpiresOn) {
		return p.cached.Token, nil
	}
	tok, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{p.scope}})
	if err != nil {
		return "", fmt.Errorf("get access token: %w", err)
	}
	p.cached = tok
	return tok.Token, nil
}
