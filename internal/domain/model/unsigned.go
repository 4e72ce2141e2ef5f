package model

import "strconv"

// UnsignedTransaction is the client-facing signing envelope for one leg.
// Numeric fields are stringified: mobile JSON parsers do not cope with
// full-range base-unit amounts.
type UnsignedTransaction struct {
	TransactionID        string    `json:"transaction_id"`
	TxType               uint8     `json:"tx_type"` // EIP-1559 = 2
	To                   string    `json:"to"`
	AmountBaseUnits      string    `json:"amount_base_units"`
	GasLimit             string    `json:"gas_limit"`
	GasPrice             string    `json:"gas_price"`
	MaxFeePerGas         string    `json:"max_fee_per_gas"`
	MaxPriorityFeePerGas string    `json:"max_priority_fee_per_gas"`
	Nonce                string    `json:"nonce"`
	ChainID              string    `json:"chain_id"`
	Token                TokenType `json:"token_type"`
	TokenDecimals        uint8     `json:"token_decimals"`
}

// NewUnsignedTransaction builds the signing envelope for a leg. Amount,
// nonce and chain id round-trip losslessly through the string encoding.
func NewUnsignedTransaction(tx *Transaction) UnsignedTransaction {
	return UnsignedTransaction{
		TransactionID:        tx.ID,
		TxType:               2,
		To:                   tx.RecipientAddress,
		AmountBaseUnits:      tx.Value,
		GasLimit:             strconv.FormatUint(tx.GasLimit, 10),
		GasPrice:             strconv.FormatUint(tx.GasPrice, 10),
		MaxFeePerGas:         strconv.FormatUint(tx.MaxFeePerGas, 10),
		MaxPriorityFeePerGas: strconv.FormatUint(tx.MaxPriorityFeePerGas, 10),
		Nonce:                strconv.FormatUint(tx.Nonce, 10),
		ChainID:              strconv.FormatUint(tx.ChainID, 10),
		Token:                tx.Token,
		TokenDecimals:        tx.Token.Decimals(),
	}
}
