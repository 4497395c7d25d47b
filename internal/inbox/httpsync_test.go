package inbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adiaconou/hermes/internal/core"
)

type fakeCredentialClient struct {
	cred core.Credential
}

func (f *fakeCredentialClient) Client(ctx context.Context, userID, provider string, build func(core.Credential) (any, error)) (any, error) {
	return build(f.cred)
}

func TestHTTPSyncSource_DeltaReturnsItemsAndCheckpoint(t *testing.T) {
	var gotAuth, gotSince string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSince = r.URL.Query().Get("since")
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]string{
				{"id": "1", "text": "hello from inbox"},
			},
			"checkpoint": "cp-2",
		})
	}))
	defer srv.Close()

	src := NewHTTPSyncSource(&fakeCredentialClient{cred: core.Credential{AccessToken: "tok-1"}}, "gmail", srv.URL)

	items, checkpoint, err := src.Delta(context.Background(), "u1", "cp-1")
	if err != nil {
		t.Fatalf("Delta: %v", err)
	}
	if len(items) != 1 || items[0].MatchText != "hello from inbox" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if checkpoint != "cp-2" {
		t.Fatalf("expected advanced checkpoint, got %q", checkpoint)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("expected bearer token forwarded, got %q", gotAuth)
	}
	if gotSince != "cp-1" {
		t.Fatalf("expected prior checkpoint sent as since, got %q", gotSince)
	}
}

func TestHTTPSyncSource_DeltaNoAccessTokenErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach the server without a resolvable credential")
	}))
	defer srv.Close()

	src := NewHTTPSyncSource(&fakeCredentialClient{cred: core.Credential{}}, "gmail", srv.URL)

	_, _, err := src.Delta(context.Background(), "u1", "")
	if err == nil {
		t.Fatal("expected an error when the credential has no access token")
	}
}

func TestHTTPSyncSource_DeltaNonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTPSyncSource(&fakeCredentialClient{cred: core.Credential{AccessToken: "tok"}}, "gmail", srv.URL)

	_, _, err := src.Delta(context.Background(), "u1", "")
	if err == nil {
		t.Fatal("expected an error on a non-200 response")
	}
}
