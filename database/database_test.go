package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

type fakeCredential struct {
	calls  int
	scopes []string
	ttl    time.Duration
	err    error
}

func (f *fakeCredential) GetToken(_ context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	f.calls++
	f.scopes = opts.Scopes
	if f.err != nil {
		return azcore.AccessToken{}, f.err
	}
	return azcore.AccessToken{
		Token:     "token-" + string(rune('0'+f.calls)),
		ExpiresOn: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Add(f.ttl),
	}, nil
}

func TestTokenPassword_CachesUntilExpiry(t *testing.T) {
	cred := &fakeCredential{}
	p, err := NewTokenPassword(cred, "")
	if err != nil {
		t.Fatalf("NewTokenPassword: %v", err)
	}
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Hour)
	p.now = func() time.Time { return now }

	ctx := context.Background()
	first, err := p.Password(ctx)
	if err != nil {
		t.Fatalf("Password: %v", err)
	}
	second, _ := p.Password(ctx)
	if first != "token-1" || second != first || cred.calls != 1 {
		t.Errorf("first=%q second=%q calls=%d", first, second, cred.calls)
	}
	if len(cred.scopes) != 1 || cred.scopes[0] != DefaultTokenScope {
		t.Errorf("scopes = %v", cred.scopes)
	}

	// inside the refresh window
	now = now.Add(56 * time.Minute)
	third, _ := p.Password(ctx)
	if third != "token-2" || cred.calls != 2 {
		t.Errorf("expected refresh, got %q after %d calls", third, cred.calls)
	}
}

func TestTokenPassword_Error(t *testing.T) {
	p, _ := NewTokenPassword(&fakeCredential{err: errors.New("not logged in")}, "custom/.default")
	if _, err := p.Password(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewTokenPassword(nil, ""); err == nil {
		t.Error("expected error for nil credential")
	}
}

func TestStaticPassword(t *testing.T) {
	pw, err := StaticPassword("secret").Password(context.Background())
	if err != nil || pw != "secret" {
		t.Errorf("got %q, %v", pw, err)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"jdbc:postgresql://db.example.com:5432/app?sslmode=require": "postgres://db.example.com:5432/app?sslmode=require",
		"postgresql://localhost/app":                                "postgres://localhost/app",
		" postgres://localhost/app ":                                "postgres://localhost/app",
		"host=localhost dbname=app":                                 "host=localhost dbname=app",
	}
	for in, want := range tests {
		if got := normalizeURL(in); got != want {
			t.Errorf("normalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenPostgres_Validation(t *testing.T) {
	ctx := context.Background()
	if _, err := OpenPostgres(ctx, Settings{}, nil); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := OpenPostgres(ctx, Settings{URL: "postgres://host:notaport/db"}, nil); err == nil {
		t.Error("expected parse error")
	}
}
