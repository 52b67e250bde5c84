// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package feeest estimates the fee and change value of a candidate
// transaction whose outputs are not yet finalized, using a plausible witness
// for sizing rather than a real signature.
package feeest

import (
	"math"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/mempool"
	"github.com/btcsuite/btcd/wire"
)

// WitnessPopulator fills in a plausible, not-necessarily-valid witness (or
// script_sig) on tx's inputs, sized the way the real signature will be, so
// that the transaction's vsize can be measured before it is actually signed.
type WitnessPopulator func(tx *wire.MsgTx) error

// Outcome is the result of one Estimate call. Change is only meaningful when
// neither Dropped nor Insufficient is set.
type Outcome struct {
	Fee          int64
	Change       int64
	Dropped      bool
	Insufficient bool
}

// Estimate sizes tx (after populateWitness fills in a plausible witness),
// computes its fee at feerate, and decides the fate of a trailing change
// output. hasChange indicates the last output in tx.TxOut is the change
// output to be sized or dropped; when false (the commit-transaction case) the
// single output's value is the returned Change and the caller is responsible
// for rejecting a negative result.
//
// The two-pass shape is required because dropping the change output shrinks
// vsize, which can lower the fee enough to make the chain affordable; sizing
// only once with the change output present would overestimate the fee and
// could spuriously report Insufficient.
func Estimate(tx *wire.MsgTx, populateWitness WitnessPopulator, feerate float64, totalInput, fixedOutput, minChange int64, hasChange bool) (Outcome, error) {
	fee, err := sizeAndFee(tx, populateWitness, feerate)
	if err != nil {
		return Outcome{}, err
	}

	change := totalInput - fixedOutput - fee

	if !hasChange {
		return Outcome{Fee: fee, Change: change}, nil
	}

	if change >= minChange {
		return Outcome{Fee: fee, Change: change}, nil
	}

	withoutChange := tx.Copy()
	withoutChange.TxOut = withoutChange.TxOut[:len(withoutChange.TxOut)-1]

	feeWithoutChange, err := sizeAndFee(withoutChange, populateWitness, feerate)
	if err != nil {
		return Outcome{}, err
	}

	if totalInput-fixedOutput-feeWithoutChange >= 0 {
		return Outcome{Fee: feeWithoutChange, Dropped: true}, nil
	}

	return Outcome{Fee: fee, Insufficient: true}, nil
}

// sizeAndFee clones tx, populates a plausible witness, and converts its
// adjusted virtual size into a fee floored at 1 sat/vB.
func sizeAndFee(tx *wire.MsgTx, populateWitness WitnessPopulator, feerate float64) (int64, error) {
	clone := tx.Copy()
	if err := populateWitness(clone); err != nil {
		return 0, err
	}

	vsize := mempool.GetTxVirtualSize(btcutil.NewTx(clone))

	fee := int64(math.Ceil(float64(vsize) * feerate))
	if fee < vsize {
		fee = vsize
	}

	return fee, nil
}
