// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package assembler builds one chain's unsigned commit and reveal
// transactions, driving the fee estimator to size each output as it goes.
package assembler

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"chaininscribe/bitcoin"
	"chaininscribe/bitcoin/envelope"
	"chaininscribe/bitcoin/feeest"
	"chaininscribe/bitcoin/signer"
)

// sequenceRBF is the nSequence value every input in an assembled transaction
// carries, opting every transaction into replace-by-fee.
const sequenceRBF = 0xFFFFFFFD

// txVersion is the transaction version every assembled transaction carries.
const txVersion = 2

// ChainInput is everything Assemble needs to build one funding output's chain.
type ChainInput struct {
	Funding             bitcoin.FundingOutput
	FundingAddrType     signer.FundingAddressType
	FundingPrivKey      *btcec.PrivateKey
	FundingPkScript     []byte
	Contexts            []*envelope.Context // one per inscription assigned to this chain, in order.
	CommitFeerate       float64
	RevealFeerate       float64
	RevealOutputValue   int64
	MinChangeValue      int64
	FinalChangePkScript []byte
}

// Assembler builds unsigned chains, using sgnr only to dry-run the funding
// input's signature for sizing — it signs nothing for real.
type Assembler struct {
	sgnr *signer.Signer
}

// NewAssembler is a constructor for Assembler.
func NewAssembler(sgnr *signer.Signer) *Assembler {
	return &Assembler{sgnr: sgnr}
}

// Assemble builds one chain: a commit transaction followed by len(input.Contexts)
// reveal transactions. It never retries; any estimator failure aborts the whole chain.
func (a *Assembler) Assemble(fundingIndex int, input ChainInput) (bitcoin.Chain, error) {
	if len(input.Contexts) == 0 {
		return bitcoin.Chain{}, bitcoin.NewInternalInvariant("assembler invoked with zero inscriptions")
	}

	commitTx, commitFee, err := a.buildCommit(input)
	if err != nil {
		return bitcoin.Chain{}, err
	}

	chain := bitcoin.Chain{
		FundingIndex: fundingIndex,
		Txs:          []bitcoin.AssembledTx{{Tx: commitTx, ContextIndex: -1, Fee: commitFee}},
	}

	prevTx := commitTx
	prevChangeVout := uint32(0)
	prevAvailable := commitTx.TxOut[0].Value

	for i, ctx := range input.Contexts {
		isLast := i == len(input.Contexts)-1

		changePkScript := input.FinalChangePkScript
		if !isLast {
			changePkScript = input.Contexts[i+1].CommitPkScript
		}

		revealTx, fee, dropped, err := a.buildReveal(revealParams{
			prevTx:            prevTx,
			prevChangeVout:    prevChangeVout,
			ctx:               ctx,
			feerate:           input.RevealFeerate,
			revealOutputValue: input.RevealOutputValue,
			minChangeValue:    input.MinChangeValue,
			totalInput:        prevAvailable,
			changePkScript:    changePkScript,
			isLast:            isLast,
		})
		if err != nil {
			return bitcoin.Chain{}, err
		}

		chain.Txs = append(chain.Txs, bitcoin.AssembledTx{Tx: revealTx, ContextIndex: i, Fee: fee})

		if dropped {
			break
		}

		prevTx = revealTx
		prevChangeVout = 1
		prevAvailable = revealTx.TxOut[1].Value
	}

	return chain, nil
}

// buildCommit builds the single-input, single-output commit transaction and
// sizes its output via the estimator, dry-running the funding signature.
func (a *Assembler) buildCommit(input ChainInput) (*wire.MsgTx, int64, error) {
	tx := wire.NewMsgTx(txVersion)
	outpoint := wire.OutPoint{}
	hash, err := chainhashFromTxID(input.Funding.TxID)
	if err != nil {
		return nil, 0, err
	}
	outpoint.Hash = *hash
	outpoint.Index = input.Funding.Vout

	txIn := wire.NewTxIn(&outpoint, nil, nil)
	txIn.Sequence = sequenceRBF
	tx.AddTxIn(txIn)
	tx.AddTxOut(wire.NewTxOut(0, input.Contexts[0].CommitPkScript))

	fundingPrevOut := wire.NewTxOut(input.Funding.Value, input.FundingPkScript)
	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(fundingPrevOut.PkScript, fundingPrevOut.Value)

	populate := func(clone *wire.MsgTx) error {
		return a.sgnr.SignFundingInput(clone, 0, input.FundingAddrType, input.FundingPrivKey, fundingPrevOut, prevOutFetcher)
	}

	outcome, err := feeest.Estimate(tx, populate, input.CommitFeerate, input.Funding.Value, 0, 0, false)
	if err != nil {
		return nil, 0, err
	}
	if outcome.Change < 0 {
		return nil, 0, bitcoin.NewFundingShortage("commit value cannot cover its own fee", -outcome.Change, 0)
	}

	tx.TxOut[0].Value = outcome.Change

	return tx, outcome.Fee, nil
}

// revealParams groups buildReveal's inputs.
type revealParams struct {
	prevTx            *wire.MsgTx
	prevChangeVout    uint32
	ctx               *envelope.Context
	feerate           float64
	revealOutputValue int64
	minChangeValue    int64
	totalInput        int64
	changePkScript    []byte
	isLast            bool
}

// buildReveal builds one reveal transaction and sizes its change output (or
// drops it) via the estimator, using the context's signature-less witness
// suffix as the plausible witness.
func (a *Assembler) buildReveal(p revealParams) (*wire.MsgTx, int64, bool, error) {
	tx := wire.NewMsgTx(txVersion)

	txIn := wire.NewTxIn(wire.NewOutPoint(txHashPtr(p.prevTx), p.prevChangeVout), nil, nil)
	txIn.Sequence = sequenceRBF
	tx.AddTxIn(txIn)

	tx.AddTxOut(wire.NewTxOut(p.revealOutputValue, p.ctx.RecipientPkScript))
	tx.AddTxOut(wire.NewTxOut(0, p.changePkScript))

	populate := func(clone *wire.MsgTx) error {
		clone.TxIn[0].Witness = wire.TxWitness{make([]byte, 64), p.ctx.RevealWitness[0], p.ctx.RevealWitness[1]}
		return nil
	}

	outcome, err := feeest.Estimate(tx, populate, p.feerate, p.totalInput, p.revealOutputValue, p.minChangeValue, true)
	if err != nil {
		return nil, 0, false, err
	}

	switch {
	case outcome.Insufficient:
		return nil, 0, false, bitcoin.NewFundingShortage(
			fmt.Sprintf("chain broken: balance %d cannot cover reveal fee + dust", p.totalInput), p.revealOutputValue+outcome.Fee, p.totalInput,
		)
	case outcome.Dropped:
		if !p.isLast {
			return nil, 0, false, bitcoin.NewFundingShortage("non-final reveal must carry change", p.minChangeValue, 0)
		}
		tx.TxOut = tx.TxOut[:1]

		return tx, outcome.Fee, true, nil
	default:
		tx.TxOut[1].Value = outcome.Change

		return tx, outcome.Fee, false, nil
	}
}

// txHashPtr returns a pointer to tx's hash; wire.OutPoint wants one.
func txHashPtr(tx *wire.MsgTx) *chainhash.Hash {
	h := tx.TxHash()
	return &h
}

// chainhashFromTxID parses a big-endian hex transaction id.
func chainhashFromTxID(txID string) (*chainhash.Hash, error) {
	return chainhash.NewHashFromStr(txID)
}
