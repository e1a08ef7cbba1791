package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbtc21/bitcoinfaces/types"
)

func TestTransactionFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extended/v1/tx/0xabc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"tx_id": "0xabc",
			"tx_status": "success",
			"tx_type": "contract_call",
			"sender_address": "SP_ALICE",
			"contract_call": {"contract_id": "SP_X.simple-oracle", "function_name": "call-with-stx"},
			"stx_sent": "1"
		}`))
	}))
	defer srv.Close()

	c := NewHiroClient(srv.URL, 5*time.Second)
	tx, err := c.Transaction(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, types.TxStatusSuccess, tx.Status)
	assert.Equal(t, types.TxTypeContractCall, tx.Type)
	assert.Equal(t, "SP_ALICE", tx.SenderAddress)
	require.NotNil(t, tx.ContractCall)
	assert.Equal(t, "SP_X.simple-oracle", tx.ContractCall.ContractID)
	assert.Equal(t, "1", tx.StxSent)
}

func TestTransactionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHiroClient(srv.URL, 5*time.Second)
	_, err := c.Transaction(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestTransactionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHiroClient(srv.URL, 5*time.Second)
	_, err := c.Transaction(context.Background(), "0xabc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTxNotFound)
}

func TestAccountNonce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/accounts/SP_MINTER", r.URL.Path)
		assert.Equal(t, "0", r.URL.Query().Get("proof"))
		w.Write([]byte(`{"balance":"0x0","nonce":42}`))
	}))
	defer srv.Close()

	c := NewHiroClient(srv.URL, 5*time.Second)
	nonce, err := c.AccountNonce(context.Background(), "SP_MINTER")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), nonce)
}
