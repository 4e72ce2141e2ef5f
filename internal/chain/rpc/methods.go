package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/appmancer/foxy-backend/internal/chain"
)

var _ chain.Client = (*Client)(nil)

func (c *Client) SendRawTransaction(ctx context.Context, signedTx string) (string, error) {
	if !strings.HasPrefix(signedTx, "0x") {
		signedTx = "0x" + signedTx
	}
	result, err := c.call(ctx, "eth_sendRawTransaction", []interface{}{signedTx})
	if err != nil {
		return "", fmt.Errorf("eth_sendRawTransaction: %w", err)
	}

	var hash string
	if err := json.Unmarshal(result, &hash); err != nil {
		return "", fmt.Errorf("unmarshal transaction hash: %w", err)
	}
	return hash, nil
}

func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*chain.Receipt, error) {
	result, err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt(%s): %w", hash, err)
	}
	if string(result) == "null" {
		return nil, nil
	}

	var receipt transactionReceipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshal transaction receipt: %w", err)
	}

	blockNumber, err := ParseHexUint64(receipt.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("parse receipt block number: %w", err)
	}
	status, err := ParseHexUint64(receipt.Status)
	if err != nil {
		return nil, fmt.Errorf("parse receipt status: %w", err)
	}

	return &chain.Receipt{
		TransactionHash: receipt.TransactionHash,
		BlockNumber:     blockNumber,
		Status:          int(status),
	}, nil
}

func (c *Client) TransactionByHash(ctx context.Context, hash string) (*chain.Transaction, error) {
	result, err := c.call(ctx, "eth_getTransactionByHash", []interface{}{hash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionByHash(%s): %w", hash, err)
	}
	if string(result) == "null" {
		return nil, nil
	}

	var tx transaction
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}

	out := &chain.Transaction{Hash: tx.Hash}
	if tx.BlockNumber != nil && *tx.BlockNumber != "" {
		blockNumber, err := ParseHexUint64(*tx.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("parse transaction block number: %w", err)
		}
		out.BlockNumber = &blockNumber
	}
	return out, nil
}

func ParseHexUint64(value string) (uint64, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 0, fmt.Errorf("empty hex value")
	}
	raw = strings.TrimPrefix(strings.ToLower(raw), "0x")
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex %q: %w", value, err)
	}
	return parsed, nil
}
