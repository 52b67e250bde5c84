// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package feeest_test

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"chaininscribe/bitcoin/feeest"
)

func revealShapedTx(withChange bool) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(546, make([]byte, 22)))
	if withChange {
		tx.AddTxOut(wire.NewTxOut(0, make([]byte, 34)))
	}

	return tx
}

func placeholderRevealWitness(tx *wire.MsgTx) error {
	tx.TxIn[0].Witness = wire.TxWitness{make([]byte, 64), make([]byte, 40), make([]byte, 33)}
	return nil
}

func TestEstimate_ChangeRetained(t *testing.T) {
	tx := revealShapedTx(true)

	outcome, err := feeest.Estimate(tx, placeholderRevealWitness, 2.5, 100_000, 546, 546, true)
	require.NoError(t, err)
	require.False(t, outcome.Dropped)
	require.False(t, outcome.Insufficient)
	require.GreaterOrEqual(t, outcome.Change, int64(546))
	require.Equal(t, int64(100_000)-546-outcome.Fee, outcome.Change)
}

func TestEstimate_ChangeDroppedOnlyWhenBelowDust(t *testing.T) {
	tx := revealShapedTx(true)

	// Small total input leaves too little for change above the dust floor,
	// but enough to cover the smaller no-change fee.
	outcome, err := feeest.Estimate(tx, placeholderRevealWitness, 2.5, 1_000, 546, 546, true)
	require.NoError(t, err)
	require.True(t, outcome.Dropped)
	require.False(t, outcome.Insufficient)
	require.Equal(t, int64(0), outcome.Change)
}

func TestEstimate_Insufficient(t *testing.T) {
	tx := revealShapedTx(true)

	outcome, err := feeest.Estimate(tx, placeholderRevealWitness, 2.5, 500, 546, 546, true)
	require.NoError(t, err)
	require.False(t, outcome.Dropped)
	require.True(t, outcome.Insufficient)
}

func TestEstimate_CommitHasNoChangeSlot(t *testing.T) {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(0, make([]byte, 34)))

	populate := func(tx *wire.MsgTx) error {
		tx.TxIn[0].Witness = wire.TxWitness{make([]byte, 64)}
		return nil
	}

	outcome, err := feeest.Estimate(tx, populate, 2.0, 50_000, 0, 546, false)
	require.NoError(t, err)
	require.False(t, outcome.Dropped)
	require.False(t, outcome.Insufficient)
	require.Equal(t, int64(50_000)-outcome.Fee, outcome.Change)
}

func TestEstimate_FeeFlooredAtOneSatPerVByte(t *testing.T) {
	tx := revealShapedTx(false)

	outcome, err := feeest.Estimate(tx, placeholderRevealWitness, 0, 100_000, 546, 546, false)
	require.NoError(t, err)
	require.Greater(t, outcome.Fee, int64(0))
}
