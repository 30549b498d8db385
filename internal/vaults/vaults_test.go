package vaults

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReports(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/configs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"name":"Supercharger","vaultPubkeyString":"VaultA"},{"name":"Empty","vaultPubkeyString":"VaultB"}]`)
	})
	mux.HandleFunc("/apys", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"VaultA":{"apys":{"7d":31.2,"30d":18.55,"90d":14.123,"180d":12,"365d":11.5},"maxDrawdownPct":3.456}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	reports, err := NewClient(srv.URL+"/configs", srv.URL+"/apys", 0).Reports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "Supercharger", reports[0].Name)
	assert.Equal(t, 14.123, reports[0].APYs["90d"])

	var out bytes.Buffer
	require.NoError(t, Print(&out, reports))
	assert.Equal(t, "\nSupercharger (VaultA)\n"+
		"  90d APY:  14.12%\n"+
		"  7d APY:   31.20%\n"+
		"  30d APY:  18.55%\n"+
		"  180d APY: 12.00%\n"+
		"  365d APY: 11.50%\n"+
		"  Max Drawdown: 3.46%\n", out.String())
}

func TestReports_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.URL, 0).Reports(context.Background())
	assert.Error(t, err)

	_, err = NewClient("", srv.URL, 0).Reports(context.Background())
	assert.Error(t, err)
}
