// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package inscribe is the top-level entry point: it derives envelope
// contexts, drives the planner and assembler to lay out and size every
// chain, signs every input, and packages the result.
package inscribe

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"chaininscribe/bitcoin"
	"chaininscribe/bitcoin/assembler"
	"chaininscribe/bitcoin/envelope"
	"chaininscribe/bitcoin/planner"
	"chaininscribe/bitcoin/signer"
)

// TxOutputInfo is one output of the packaged final reveal.
type TxOutputInfo struct {
	PkScriptHex string
	Value       int64
}

// LastTxInfo is self-contained context for an external RBF module to rebuild
// and re-sign a chain's final reveal transaction.
type LastTxInfo struct {
	TxID                   string
	Hex                    string
	Fee                    int64
	SpentTxID              string
	SpentVout              uint32
	SpentValue             int64
	Outputs                []TxOutputInfo
	SigningPrivateKeyWIF   string
	FinalChangeAddress     string
	Network                string
	RevealOutputValue      int64
	MinChangeValue         int64
	PrevInputPkScriptHex   string
	RevealPkScriptHex      string
	FinalChangePkScriptHex string
	LeafHashHex            string
}

// ChainResult is one funding output's packaged, signed chain.
type ChainResult struct {
	TxHexes []string
	TxIDs   []string
	Fee     int64
	LastTx  LastTxInfo
}

// Result is the outcome of one Inscribe call. On failure every collection is
// empty and TotalEstimatedFee is 0; no partial progress is ever exposed.
type Result struct {
	Success           bool
	Error             string
	Chains            []ChainResult
	TotalEstimatedFee int64
	NetworkType       string
}

// Tool is the build→sign→package engine for one request. It is not safe for
// concurrent or re-entrant use; callers wanting parallelism should create one
// Tool per goroutine.
type Tool struct {
	params    *chaincfg.Params
	sgnr      *signer.Signer
	assembler *assembler.Assembler
}

// NewTool is a constructor for Tool.
func NewTool(params *chaincfg.Params) *Tool {
	sgnr := signer.NewSigner(params)

	return &Tool{
		params:    params,
		sgnr:      sgnr,
		assembler: assembler.NewAssembler(sgnr),
	}
}

// SetAuxRandSource pins the auxiliary randomness every reveal-input signature
// this Tool produces from now on will use, for reproducible test runs.
func (t *Tool) SetAuxRandSource(seed *[32]byte) {
	t.sgnr.SetAuxRandSource(seed)
}

// Inscribe runs the full build, sign, and package pipeline against req. It
// never panics on malformed input or insufficient funds; every failure is
// reported through Result.Success/Result.Error instead.
func (t *Tool) Inscribe(req bitcoin.InscriptionRequest) Result {
	result, err := t.inscribe(req.WithDefaults())
	if err != nil {
		return Result{Success: false, Error: err.Error(), NetworkType: bitcoin.NetworkType(t.params)}
	}

	return result
}

func (t *Tool) inscribe(req bitcoin.InscriptionRequest) (Result, error) {
	if err := validate(req); err != nil {
		return Result{}, err
	}

	primaryPrivKey, err := t.sgnr.DecodePrivateKey(req.FundingOutputs[0].WIF)
	if err != nil {
		return Result{}, err
	}
	internalPubKey := schnorr.SerializePubKey(primaryPrivKey.PubKey())

	contexts := make([]*envelope.Context, len(req.Inscriptions))
	for i, payload := range req.Inscriptions {
		ctx, err := envelope.Build(internalPubKey, payload.ContentType, payload.Body, payload.Recipient, t.params)
		if err != nil {
			return Result{}, err
		}
		contexts[i] = ctx
	}

	finalChangeAddr, err := btcutil.DecodeAddress(req.FinalChangeAddress, t.params)
	if err != nil {
		return Result{}, err
	}
	finalChangePkScript, err := txscript.PayToAddrScript(finalChangeAddr)
	if err != nil {
		return Result{}, err
	}

	chainContexts := make(map[int][]*envelope.Context)

	var chains []bitcoin.Chain
	_, err = planner.Plan(len(req.Inscriptions), len(req.FundingOutputs), func(fundingIndex int, inscriptionIndexes []int) error {
		ctxSlice := make([]*envelope.Context, len(inscriptionIndexes))
		for i, globalIdx := range inscriptionIndexes {
			ctxSlice[i] = contexts[globalIdx]
		}

		funding := req.FundingOutputs[fundingIndex]

		addr, err := btcutil.DecodeAddress(funding.Address, t.params)
		if err != nil {
			return err
		}
		addrType, err := signer.DetectFundingAddressType(addr)
		if err != nil {
			return err
		}
		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return err
		}
		fundingPrivKey, err := t.sgnr.DecodePrivateKey(funding.WIF)
		if err != nil {
			return err
		}

		chain, err := t.assembler.Assemble(fundingIndex, assembler.ChainInput{
			Funding:             funding,
			FundingAddrType:     addrType,
			FundingPrivKey:      fundingPrivKey,
			FundingPkScript:     pkScript,
			Contexts:            ctxSlice,
			CommitFeerate:       req.CommitFeerate,
			RevealFeerate:       req.RevealFeerate,
			RevealOutputValue:   req.RevealOutputValue,
			MinChangeValue:      req.MinChangeValue,
			FinalChangePkScript: finalChangePkScript,
		})
		if err != nil {
			return err
		}

		chainContexts[fundingIndex] = ctxSlice
		chains = append(chains, chain)

		return nil
	})
	if err != nil {
		return Result{}, err
	}

	chainResults := make([]ChainResult, len(chains))
	var totalFee int64

	for i, chain := range chains {
		chainResult, err := t.signAndPackage(req, chain, chainContexts[chain.FundingIndex], primaryPrivKey, finalChangePkScript)
		if err != nil {
			return Result{}, err
		}

		chainResults[i] = chainResult
		totalFee += chainResult.Fee
	}

	return Result{
		Success:           true,
		Chains:            chainResults,
		TotalEstimatedFee: totalFee,
		NetworkType:       bitcoin.NetworkType(t.params),
	}, nil
}

// signAndPackage signs every input of chain in order and packages its hexes,
// txids, and LastTxInfo.
func (t *Tool) signAndPackage(
	req bitcoin.InscriptionRequest,
	chain bitcoin.Chain,
	ctxSlice []*envelope.Context,
	primaryPrivKey *btcec.PrivateKey,
	finalChangePkScript []byte,
) (ChainResult, error) {
	funding := req.FundingOutputs[chain.FundingIndex]

	addr, err := btcutil.DecodeAddress(funding.Address, t.params)
	if err != nil {
		return ChainResult{}, err
	}
	addrType, err := signer.DetectFundingAddressType(addr)
	if err != nil {
		return ChainResult{}, err
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return ChainResult{}, err
	}
	fundingPrivKey, err := t.sgnr.DecodePrivateKey(funding.WIF)
	if err != nil {
		return ChainResult{}, err
	}

	commitTx := chain.Txs[0].Tx
	fundingPrevOut := wire.NewTxOut(funding.Value, pkScript)
	fundingPrevOutFetcher := txscript.NewCannedPrevOutputFetcher(fundingPrevOut.PkScript, fundingPrevOut.Value)

	if err := t.sgnr.SignFundingInput(commitTx, 0, addrType, fundingPrivKey, fundingPrevOut, fundingPrevOutFetcher); err != nil {
		return ChainResult{}, err
	}

	prevTx := commitTx
	var lastCtx *envelope.Context

	for i := 1; i < len(chain.Txs); i++ {
		assembled := chain.Txs[i]
		ctx := ctxSlice[assembled.ContextIndex]
		lastCtx = ctx

		// A P2PKH or P2SH-P2WPKH funding signature sits in the commit's
		// script_sig and so changes its txid; each reveal is re-pointed at its
		// predecessor's signed txid before it is signed itself.
		assembled.Tx.TxIn[0].PreviousOutPoint.Hash = prevTx.TxHash()

		prevOutIdx := assembled.Tx.TxIn[0].PreviousOutPoint.Index
		prevOut := prevTx.TxOut[prevOutIdx]
		prevOutFetcher := txscript.NewCannedPrevOutputFetcher(prevOut.PkScript, prevOut.Value)

		if err := t.sgnr.SignRevealInput(assembled.Tx, 0, ctx, primaryPrivKey, prevOut, prevOutFetcher); err != nil {
			return ChainResult{}, err
		}

		prevTx = assembled.Tx
	}

	txHexes := make([]string, len(chain.Txs))
	txIDs := make([]string, len(chain.Txs))
	var fee int64
	for i, assembled := range chain.Txs {
		raw, err := serializeTx(assembled.Tx)
		if err != nil {
			return ChainResult{}, err
		}
		txHexes[i] = hex.EncodeToString(raw)
		txIDs[i] = assembled.Tx.TxHash().String()
		fee += assembled.Fee
	}

	lastAssembled := chain.Txs[len(chain.Txs)-1]
	spentIdx := lastAssembled.Tx.TxIn[0].PreviousOutPoint.Index
	spentOut := prevTxOf(chain, len(chain.Txs)-1).TxOut[spentIdx]

	outputs := make([]TxOutputInfo, len(lastAssembled.Tx.TxOut))
	for i, out := range lastAssembled.Tx.TxOut {
		outputs[i] = TxOutputInfo{PkScriptHex: hex.EncodeToString(out.PkScript), Value: out.Value}
	}

	lastTx := LastTxInfo{
		TxID:                   txIDs[len(txIDs)-1],
		Hex:                    txHexes[len(txHexes)-1],
		Fee:                    lastAssembled.Fee,
		SpentTxID:              lastAssembled.Tx.TxIn[0].PreviousOutPoint.Hash.String(),
		SpentVout:              spentIdx,
		SpentValue:             spentOut.Value,
		Outputs:                outputs,
		SigningPrivateKeyWIF:   req.FundingOutputs[0].WIF,
		FinalChangeAddress:     req.FinalChangeAddress,
		Network:                bitcoin.NetworkType(t.params),
		RevealOutputValue:      req.RevealOutputValue,
		MinChangeValue:         req.MinChangeValue,
		PrevInputPkScriptHex:   hex.EncodeToString(lastCtx.CommitPkScript),
		RevealPkScriptHex:      hex.EncodeToString(lastCtx.RecipientPkScript),
		FinalChangePkScriptHex: hex.EncodeToString(finalChangePkScript),
		LeafHashHex:            hex.EncodeToString(lastCtx.LeafHash[:]),
	}

	return ChainResult{TxHexes: txHexes, TxIDs: txIDs, Fee: fee, LastTx: lastTx}, nil
}

// prevTxOf returns the transaction chain.Txs[idx] spends: the commit for idx==1,
// the preceding reveal otherwise.
func prevTxOf(chain bitcoin.Chain, idx int) *wire.MsgTx {
	return chain.Txs[idx-1].Tx
}

// serializeTx returns tx's full (witness-included) wire serialization.
func serializeTx(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// validate checks the request invariants that must hold before any building starts.
func validate(req bitcoin.InscriptionRequest) error {
	if len(req.FundingOutputs) == 0 {
		return bitcoin.NewValidationError("funding output list is empty")
	}
	if len(req.Inscriptions) == 0 {
		return bitcoin.NewValidationError("inscription list is empty")
	}
	for _, funding := range req.FundingOutputs {
		if funding.WIF == "" {
			return bitcoin.NewValidationError("funding output has no signing key")
		}
	}

	return nil
}
