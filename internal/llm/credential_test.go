package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/nikhilbhutani/resumeprocessor/internal/config"
)

func TestManagedIdentityCredential(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		assert.Equal(t, "true", r.Header.Get("Metadata"))
		assert.Equal(t, "https://cognitiveservices.azure.com", r.URL.Query().Get("resource"))
		assert.Equal(t, "2018-02-01", r.URL.Query().Get("api-version"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": fmt.Sprintf("mi-%d", n),
			"expires_in":   "3600",
			"token_type":   "Bearer",
		})
	}))
	defer srv.Close()

	cred := NewManagedIdentityCredential(srv.URL, "https://cognitiveservices.azure.com/.default", "", srv.Client())
	assert.True(t, cred.Bearer())

	tok, err := cred.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "mi-1", tok)

	tok, err = cred.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "mi-1", tok, "valid token is reused")

	tok, err = cred.Token(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "mi-2", tok)
	assert.Equal(t, int32(2), hits.Load())
}

func TestManagedIdentityCredential_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "identity not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	cred := NewManagedIdentityCredential(srv.URL, "https://cognitiveservices.azure.com/.default", "", srv.Client())
	_, err := cred.Token(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestClientCredential(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "https://cognitiveservices.azure.com/.default", r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"cc-%d","token_type":"Bearer","expires_in":3600}`, n)
	}))
	defer srv.Close()

	cred := NewClientCredential(&clientcredentials.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     srv.URL,
		Scopes:       []string{"https://cognitiveservices.azure.com/.default"},
	})

	tok, err := cred.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "cc-1", tok)

	tok, err = cred.Token(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "cc-2", tok)
}

func TestNewCredential(t *testing.T) {
	cred, err := NewCredential(config.LLMConfig{CredentialMode: config.CredentialAPIKey, APIKey: "k"})
	require.NoError(t, err)
	assert.False(t, cred.Bearer())
	tok, err := cred.Token(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "k", tok)

	_, err = NewCredential(config.LLMConfig{CredentialMode: config.CredentialAPIKey})
	assert.Error(t, err)

	cred, err = NewCredential(config.LLMConfig{CredentialMode: config.CredentialManagedIdentity, Scope: "https://cognitiveservices.azure.com/.default"})
	require.NoError(t, err)
	assert.True(t, cred.Bearer())

	_, err = NewCredential(config.LLMConfig{CredentialMode: "certificate"})
	assert.Error(t, err)
}
