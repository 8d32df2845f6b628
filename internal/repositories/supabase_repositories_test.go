package repositories

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopup-backend/internal/models"
	"shopup-backend/pkg/supabase"
)

func newSupabase(t *testing.T, handler http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := supabase.New(supabase.Config{URL: srv.URL, APIKey: "service"})
	require.NoError(t, err)
	return client
}

func noRows(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotAcceptable)
	_, _ = io.WriteString(w, `{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`)
}

func TestSupabaseAdminRepository(t *testing.T) {
	client := newSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/admin_users", r.URL.Path)
		if r.URL.Query().Get("user_id") != "eq.6f1c8e8e-9b55-4f0a-bb0d-2b7a5d0c4a11" {
			noRows(w)
			return
		}
		_, _ = io.WriteString(w, `{"user_id":"6f1c8e8e-9b55-4f0a-bb0d-2b7a5d0c4a11","role":"admin","is_active":true}`)
	})
	repo := NewSupabaseAdminRepository(client)

	admin, err := repo.GetByUserID(context.Background(), "6f1c8e8e-9b55-4f0a-bb0d-2b7a5d0c4a11")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Role)
	assert.True(t, admin.IsActive)

	_, err = repo.GetByUserID(context.Background(), "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabaseSellerRepository_ServerError(t *testing.T) {
	client := newSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"boom"}`)
	})

	_, err := NewSupabaseSellerRepository(client).GetByUserID(context.Background(), "u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	var apiErr *supabase.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestSupabaseProductRepository_GetByIDs(t *testing.T) {
	client := newSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `in.("p1","p2")`, r.URL.Query().Get("id"))
		_, _ = io.WriteString(w, `[{"id":"p1","name":"Kente scarf","price":120.5,"is_active":true}]`)
	})
	repo := NewSupabaseProductRepository(client)

	products, err := repo.GetByIDs(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Kente scarf", products[0].Name)
	assert.Equal(t, 120.5, products[0].Price)

	products, err = repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestSupabaseProductRepository_ListActive(t *testing.T) {
	client := newSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "eq.true", q.Get("is_active"))
		assert.Equal(t, "eq.s1", q.Get("seller_id"))
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, "100", q.Get("limit"))
		_, _ = io.WriteString(w, `[]`)
	})

	products, err := NewSupabaseProductRepository(client).ListActive(context.Background(), models.ProductFilter{SellerID: "s1", Limit: 500})
	require.NoError(t, err)
	assert.Empty(t, products)
}
