package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func methodTestClient(t *testing.T, method string, result string) *Client {
	t.Helper()
	return newTestClient(func(r *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req Request
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, method, req.Method)

		resp := Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  json.RawMessage(result),
		}
		rawResp, err := json.Marshal(resp)
		require.NoError(t, err)
		return jsonHTTPResponse(http.StatusOK, string(rawResp)), nil
	})
}

func TestSendRawTransaction(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req Request
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "eth_sendRawTransaction", req.Method)
		assert.Equal(t, "0xf86b0f", req.Params[0])

		return jsonHTTPResponse(http.StatusOK,
			`{"jsonrpc":"2.0","id":1,"result":"0xabc123"}`), nil
	})

	hash, err := client.SendRawTransaction(context.Background(), "0xf86b0f")
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", hash)
}

func TestSendRawTransaction_AddsHexPrefix(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req Request
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "0xf86b0f", req.Params[0])

		return jsonHTTPResponse(http.StatusOK,
			`{"jsonrpc":"2.0","id":1,"result":"0xabc123"}`), nil
	})

	_, err := client.SendRawTransaction(context.Background(), "f86b0f")
	require.NoError(t, err)
}

func TestTransactionReceipt(t *testing.T) {
	client := methodTestClient(t, "eth_getTransactionReceipt", `{
		"transactionHash":"0xaa",
		"blockNumber":"0x2a",
		"transactionIndex":"0x0",
		"status":"0x1",
		"from":"0x1",
		"to":"0x2",
		"gasUsed":"0x5208",
		"effectiveGasPrice":"0x3b9aca00"
	}`)

	receipt, err := client.TransactionReceipt(context.Background(), "0xaa")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "0xaa", receipt.TransactionHash)
	assert.Equal(t, uint64(42), receipt.BlockNumber)
	assert.Equal(t, 1, receipt.Status)
}

func TestTransactionReceipt_Reverted(t *testing.T) {
	client := methodTestClient(t, "eth_getTransactionReceipt", `{
		"transactionHash":"0xaa",
		"blockNumber":"0x2a",
		"status":"0x0"
	}`)

	receipt, err := client.TransactionReceipt(context.Background(), "0xaa")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, 0, receipt.Status)
}

func TestTransactionReceipt_NotMined(t *testing.T) {
	client := methodTestClient(t, "eth_getTransactionReceipt", `null`)

	receipt, err := client.TransactionReceipt(context.Background(), "0xaa")
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestTransactionByHash(t *testing.T) {
	client := methodTestClient(t, "eth_getTransactionByHash", `{
		"hash":"0xbb",
		"blockNumber":"0x10",
		"from":"0x1",
		"to":"0x2",
		"value":"0x0",
		"nonce":"0xf"
	}`)

	tx, err := client.TransactionByHash(context.Background(), "0xbb")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, "0xbb", tx.Hash)
	require.NotNil(t, tx.BlockNumber)
	assert.Equal(t, uint64(16), *tx.BlockNumber)
}

func TestTransactionByHash_Pending(t *testing.T) {
	client := methodTestClient(t, "eth_getTransactionByHash", `{
		"hash":"0xbb",
		"blockNumber":null
	}`)

	tx, err := client.TransactionByHash(context.Background(), "0xbb")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Nil(t, tx.BlockNumber)
}

func TestTransactionByHash_Unknown(t *testing.T) {
	client := methodTestClient(t, "eth_getTransactionByHash", `null`)

	tx, err := client.TransactionByHash(context.Background(), "0xbb")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestParseHexUint64(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{"simple", "0x2a", 42, false},
		{"zero", "0x0", 0, false},
		{"bare prefix", "0x", 0, false},
		{"uppercase", "0X2A", 42, false},
		{"empty", "", 0, true},
		{"garbage", "0xzz", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHexUint64(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
