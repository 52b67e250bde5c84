// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"github.com/btcsuite/btcd/btcutil"

	"chaininscribe/bitcoin"
)

// FundingAddressType names one of the four address schemes a funding output
// may use; any other decoded address type is rejected at detection time.
type FundingAddressType string

const (
	// AddressTypeP2PKH is a legacy pay-to-pubkey-hash funding address.
	AddressTypeP2PKH FundingAddressType = "P2PKH"
	// AddressTypeP2WPKH is a native segwit v0 pay-to-witness-pubkey-hash funding address.
	AddressTypeP2WPKH FundingAddressType = "P2WPKH"
	// AddressTypeP2SHP2WPKH is a nested segwit (P2SH-wrapped P2WPKH) funding address.
	AddressTypeP2SHP2WPKH FundingAddressType = "P2SH-P2WPKH"
	// AddressTypeP2TR is a key-path-spendable taproot funding address.
	AddressTypeP2TR FundingAddressType = "P2TR"
)

// DetectFundingAddressType classifies a decoded funding address to pick its
// signing procedure. Every *btcutil.AddressScriptHash funding entry is
// treated as P2SH-P2WPKH: script-hash funding inputs that wrap anything
// other than a nested witness pubkey hash are out of scope.
func DetectFundingAddressType(addr btcutil.Address) (FundingAddressType, error) {
	switch addr.(type) {
	case *btcutil.AddressTaproot:
		return AddressTypeP2TR, nil
	case *btcutil.AddressWitnessPubKeyHash:
		return AddressTypeP2WPKH, nil
	case *btcutil.AddressScriptHash:
		return AddressTypeP2SHP2WPKH, nil
	case *btcutil.AddressPubKeyHash:
		return AddressTypeP2PKH, nil
	default:
		return "", bitcoin.NewSigningFailure("unsupported funding address type")
	}
}
