// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package envelope

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"

	"chaininscribe/bitcoin/utils"
)

// maxBodyDataPushLen defines the maximum size of a single data push for bitcoin scripts.
const maxBodyDataPushLen = 520

// inscriptionOrdTag defines the ord tag pushed to disambiguate inscriptions from other envelope uses.
const inscriptionOrdTag = "ord"

// ErrEmptyInternalPubKey defines that the x-only internal public key is missing
// or is not 32 bytes long.
var ErrEmptyInternalPubKey = errors.New("empty internal public key")

// Context is the derived, immutable material for one inscription: its compiled
// script, commit address, and the reveal-path witness elements that do not
// depend on a signature.
type Context struct {
	InternalPubKey    []byte          // 32-byte x-only internal public key, shared by every Context in a request.
	Script            []byte          // compiled inscription script (the taproot leaf).
	LeafHash          chainhash.Hash  // TapLeaf hash of Script at leaf version 0xC0.
	ControlBlock      []byte          // 33-byte BIP341 control block for script-path spending.
	CommitAddress     string          // bech32m P2TR commit address.
	CommitPkScript    []byte          // output script of CommitAddress.
	RevealWitness     [][]byte        // reveal-path witness suffix, [script, control_block], signature-less.
	RecipientPkScript []byte          // output script of the reveal recipient.
}

// Build compiles one inscription's script-tree leaf and derives its commit address,
// control block, and TapLeaf hash. internalPubKey is the 32-byte x-only component of
// the primary signing key, reused unchanged across every Context in a request.
func Build(internalPubKey []byte, contentType string, body []byte, recipient string, params *chaincfg.Params) (*Context, error) {
	if len(internalPubKey) != schnorr.PubKeyBytesLen {
		return nil, ErrEmptyInternalPubKey
	}

	script, err := compileScript(internalPubKey, contentType, body)
	if err != nil {
		return nil, err
	}

	tapScriptTree, err := utils.NewTapScriptTreeFromRawScripts(script)
	if err != nil {
		return nil, err
	}

	internalKey, err := schnorr.ParsePubKey(internalPubKey)
	if err != nil {
		return nil, err
	}

	leaf := txscript.NewBaseTapLeaf(script)
	leafHash := leaf.TapHash()

	ctrlBlock := tapScriptTree.LeafMerkleProofs[0].ToControlBlock(internalKey)
	ctrlBlockBytes, err := ctrlBlock.ToBytes()
	if err != nil {
		return nil, err
	}

	rootHash := tapScriptTree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(internalKey, rootHash[:])

	commitAddr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), params)
	if err != nil {
		return nil, err
	}

	commitPkScript, err := txscript.PayToAddrScript(commitAddr)
	if err != nil {
		return nil, err
	}

	recipientAddr, err := btcutil.DecodeAddress(recipient, params)
	if err != nil {
		return nil, err
	}

	recipientPkScript, err := txscript.PayToAddrScript(recipientAddr)
	if err != nil {
		return nil, err
	}

	return &Context{
		InternalPubKey:    internalPubKey,
		Script:            script,
		LeafHash:          leafHash,
		ControlBlock:      ctrlBlockBytes,
		CommitAddress:     commitAddr.String(),
		CommitPkScript:    commitPkScript,
		RevealWitness:     [][]byte{script, ctrlBlockBytes},
		RecipientPkScript: recipientPkScript,
	}, nil
}

// compileScript compiles the ordinals envelope leaf:
//
//	<internalPubKey> OP_CHECKSIG
//	OP_FALSE OP_IF
//	  "ord"
//	  OP_1 OP_1 <contentType>
//	  OP_0 <body chunk 0> <body chunk 1> ...
//	OP_ENDIF
//
// The tag value is pushed via the literal {OP_DATA_1, tag} pair (not the minimally
// encoded small-int opcode), matching the existing testnet fixtures this source produces.
func compileScript(internalPubKey []byte, contentType string, body []byte) ([]byte, error) {
	sb := txscript.NewScriptBuilder()
	sb.AddData(internalPubKey)
	sb.AddOp(txscript.OP_CHECKSIG)

	sb.AddOp(txscript.OP_FALSE)
	sb.AddOp(txscript.OP_IF)
	sb.AddData([]byte(inscriptionOrdTag))

	if len(contentType) != 0 {
		sb.AddOps(TagContentType.IntoDataPush())
		sb.AddData([]byte(contentType))
	}

	if len(body) != 0 {
		sb.AddOp(txscript.OP_0)
		for _, chunk := range chunkBody(body) {
			sb.AddData(chunk)
		}
	}

	sb.AddOp(txscript.OP_ENDIF)

	return sb.Script()
}

// chunkBody splits body into pushes of at most maxBodyDataPushLen bytes.
func chunkBody(body []byte) [][]byte {
	chunks := make([][]byte, 0, (len(body)/maxBodyDataPushLen)+1)
	for start := 0; start < len(body); start += maxBodyDataPushLen {
		end := start + maxBodyDataPushLen
		if end > len(body) {
			end = len(body)
		}

		chunks = append(chunks, body[start:end])
	}

	return chunks
}
