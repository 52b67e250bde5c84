// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package bitcoin

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

// FundingOutput describes one pre-existing, spendable output that seeds a chain.
type FundingOutput struct {
	TxID    string // funding transaction id, big-endian hex.
	Vout    uint32 // output index in the funding transaction.
	Value   int64  // value in satoshi.
	Address string // owning address, any of the supported funding address types.
	WIF     string // signing private key, WIF-encoded. Must always be present.
}

// InscriptionPayload describes one inscription's content before it is compiled into an envelope.
type InscriptionPayload struct {
	ContentType string // MIME type of Body.
	Body        []byte // inscription content.
	Recipient   string // reveal recipient address.
}

// InscriptionRequest describes a full chain-inscription batch.
type InscriptionRequest struct {
	FundingOutputs     []FundingOutput
	Inscriptions       []InscriptionPayload
	CommitFeerate      float64 // sat/vB.
	RevealFeerate      float64 // sat/vB.
	RevealOutputValue  int64   // sat, dust at the inscription recipient. Defaults to DefaultRevealOutputValue.
	FinalChangeAddress string  // where every chain's final reveal sends its change.
	MinChangeValue     int64   // sat, floor below which change is dropped. Defaults to DefaultMinChangeValue.
}

// Defaults mirror the dust threshold the ordinals protocol and the wider Bitcoin
// Core relay policy converge on for a P2TR/P2WPKH-sized output.
const (
	// DefaultRevealOutputValue is the reveal-output dust value applied when InscriptionRequest.RevealOutputValue is 0.
	DefaultRevealOutputValue int64 = 546
	// DefaultMinChangeValue is the change floor applied when InscriptionRequest.MinChangeValue is 0.
	DefaultMinChangeValue int64 = 546
)

// WithDefaults returns a copy of req with zero-valued optional fields replaced by their defaults.
func (req InscriptionRequest) WithDefaults() InscriptionRequest {
	if req.RevealOutputValue == 0 {
		req.RevealOutputValue = DefaultRevealOutputValue
	}
	if req.MinChangeValue == 0 {
		req.MinChangeValue = DefaultMinChangeValue
	}

	return req
}

// NetworkType returns the "mainnet"/"testnet" string a Result reports for the given network params.
func NetworkType(params *chaincfg.Params) string {
	if params.Net == chaincfg.MainNetParams.Net {
		return "mainnet"
	}

	return "testnet"
}

// AssembledTx is one unsigned transaction in a chain, together with the
// bookkeeping the signer and result packager need: its estimated fee and,
// for a reveal, the index into the chain's context slice it reveals.
// ContextIndex is -1 for the commit transaction.
//
// This doubles as the TxFeeLedger/ContextMap records the design calls out as
// separate parallel structures: a field on the transaction it describes is
// the same O(1) lookup a (chain_index, tx_index)-keyed map would give, without
// two structures that can drift out of sync.
type AssembledTx struct {
	Tx           *wire.MsgTx
	ContextIndex int
	Fee          int64
}

// Chain is one funding output's fully assembled, not-yet-signed chain:
// Txs[0] is the commit transaction, Txs[1:] are reveals in order.
type Chain struct {
	FundingIndex int
	Txs          []AssembledTx
}
