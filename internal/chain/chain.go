// Package chain defines the node capabilities the payment workers need.
// Implementations live in subpackages; callers depend on this interface so
// tests can substitute mocks.
package chain

import "context"

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/appmancer/foxy-backend/internal/chain Client

// ReceiptStatusSuccess is the execution status of a mined, non-reverted
// transaction.
const ReceiptStatusSuccess = 1

// Receipt is the mined outcome of a transaction.
type Receipt struct {
	TransactionHash string
	BlockNumber     uint64
	// Status is 1 for success and 0 for a reverted execution.
	Status int
}

// Transaction is a node's view of a transaction, mined or pending.
type Transaction struct {
	Hash string
	// BlockNumber is nil while the transaction sits in the mempool.
	BlockNumber *uint64
}

// Client is the node capability surface: submit a signed payload and look
// up transactions and receipts by hash.
type Client interface {
	// SendRawTransaction submits a signed hex payload and returns the
	// transaction hash reported by the node.
	SendRawTransaction(ctx context.Context, signedTx string) (string, error)
	// TransactionReceipt returns nil without error when the transaction
	// has not been mined yet.
	TransactionReceipt(ctx context.Context, hash string) (*Receipt, error)
	// TransactionByHash returns nil without error when the node does not
	// know the transaction.
	TransactionByHash(ctx context.Context, hash string) (*Transaction, error)
}
