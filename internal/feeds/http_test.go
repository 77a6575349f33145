package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/circulation/internal/entities"
)

func TestHTTPTransport(t *testing.T) {
	t.Run("sends basic auth from barcode and pin", func(t *testing.T) {
		var gotUser, gotPass string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser, gotPass, _ = r.BasicAuth()
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		transport := NewHTTPTransport()
		resp, err := transport.Execute(context.Background(), Request{
			URL:         server.URL,
			Credentials: &entities.Credentials{Barcode: "card-1", PIN: "9999"},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "ok", string(resp.Body))
		assert.Equal(t, "card-1", gotUser)
		assert.Equal(t, "9999", gotPass)
	})

	t.Run("prefers bearer token over basic auth", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
		}))
		defer server.Close()

		transport := NewHTTPTransport()
		_, err := transport.Execute(context.Background(), Request{
			URL:         server.URL,
			Credentials: &entities.Credentials{Barcode: "card-1", Token: "tok-abc"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok-abc", gotAuth)
	})

	t.Run("non-2xx status is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		transport := NewHTTPTransport()
		resp, err := transport.Execute(context.Background(), Request{URL: server.URL})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.Status)
	})

	t.Run("unreachable server is an error", func(t *testing.T) {
		transport := NewHTTPTransport()
		_, err := transport.Execute(context.Background(), Request{URL: "http://127.0.0.1:1"})
		require.Error(t, err)
	})
}

func TestJSONFeedParser(t *testing.T) {
	parser := NewJSONFeedParser()

	t.Run("valid feed", func(t *testing.T) {
		entries, err := parser.Parse([]byte(`[{"id":"urn:1","title":"First"},{"id":"urn:2","title":"Second"}]`))
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "urn:1", entries[0].ID)
		assert.Equal(t, "Second", entries[1].Title)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := parser.Parse([]byte(`{"not":"an array"`))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("entry without id", func(t *testing.T) {
		_, err := parser.Parse([]byte(`[{"title":"anonymous"}]`))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, err.Error(), "no id")
	})
}
