// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package envelope_test

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"

	"chaininscribe/bitcoin/envelope"
)

func testRecipient(t *testing.T) btcutil.Address {
	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(privKey.PubKey().SerializeCompressed()), &chaincfg.MainNetParams)
	require.NoError(t, err)

	return addr
}

func TestBuild_RejectsEmptyInternalPubKey(t *testing.T) {
	recipient := testRecipient(t)

	_, err := envelope.Build(nil, "text/plain", []byte("hi"), recipient.EncodeAddress(), &chaincfg.MainNetParams)
	require.ErrorIs(t, err, envelope.ErrEmptyInternalPubKey)
}

func TestBuild_ScriptStartsWithCheckSig(t *testing.T) {
	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	internalPubKey := schnorr.SerializePubKey(privKey.PubKey())

	ctx, err := envelope.Build(internalPubKey, "text/plain", []byte("hello world"), testRecipient(t).EncodeAddress(), &chaincfg.MainNetParams)
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(ctx.Script, append([]byte{txscript.OP_DATA_32}, internalPubKey...)))
	require.Equal(t, byte(txscript.OP_CHECKSIG), ctx.Script[33])
}

func TestBuild_ControlBlockAndLeafHashAreWellFormed(t *testing.T) {
	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	internalPubKey := schnorr.SerializePubKey(privKey.PubKey())

	ctx, err := envelope.Build(internalPubKey, "image/png", bytes.Repeat([]byte{0xAB}, 10), testRecipient(t).EncodeAddress(), &chaincfg.MainNetParams)
	require.NoError(t, err)

	require.Len(t, ctx.ControlBlock, 33) // depth-0 tree: leaf version + parity byte, internal key, no sibling hashes.
	require.Equal(t, byte(txscript.BaseLeafVersion), ctx.ControlBlock[0]&0xfe)
	require.Len(t, ctx.LeafHash, 32)
	require.NotEmpty(t, ctx.Script)
	require.Equal(t, ctx.RevealWitness, [][]byte{ctx.Script, ctx.ControlBlock})
}

func TestBuild_CommitAddressIsBech32mTaproot(t *testing.T) {
	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	internalPubKey := schnorr.SerializePubKey(privKey.PubKey())

	ctx, err := envelope.Build(internalPubKey, "text/plain", []byte("x"), testRecipient(t).EncodeAddress(), &chaincfg.MainNetParams)
	require.NoError(t, err)

	addr, err := btcutil.DecodeAddress(ctx.CommitAddress, &chaincfg.MainNetParams)
	require.NoError(t, err)
	_, ok := addr.(*btcutil.AddressTaproot)
	require.True(t, ok)

	pkScript, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)
	require.Equal(t, pkScript, ctx.CommitPkScript)
}

func TestBuild_BodyLargerThanOnePushIsChunked(t *testing.T) {
	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	internalPubKey := schnorr.SerializePubKey(privKey.PubKey())

	body := bytes.Repeat([]byte{0x42}, 1200) // three 520-byte-or-smaller pushes.

	ctx, err := envelope.Build(internalPubKey, "application/octet-stream", body, testRecipient(t).EncodeAddress(), &chaincfg.MainNetParams)
	require.NoError(t, err)

	tokenizer := txscript.MakeScriptTokenizer(0, ctx.Script)
	var pushes [][]byte
	for tokenizer.Next() {
		if len(tokenizer.Data()) > 0 {
			pushes = append(pushes, tokenizer.Data())
		}
	}
	require.NoError(t, tokenizer.Err())

	var recovered []byte
	// The last three pushes are the body chunks; the key, "ord", tag and
	// content-type pushes all come before them.
	for _, p := range pushes[len(pushes)-3:] {
		recovered = append(recovered, p...)
	}
	require.Equal(t, body, recovered)
}

func TestBuild_EmptyContentTypeOmitsTag(t *testing.T) {
	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	internalPubKey := schnorr.SerializePubKey(privKey.PubKey())

	withType, err := envelope.Build(internalPubKey, "text/plain", []byte("x"), testRecipient(t).EncodeAddress(), &chaincfg.MainNetParams)
	require.NoError(t, err)

	withoutType, err := envelope.Build(internalPubKey, "", []byte("x"), testRecipient(t).EncodeAddress(), &chaincfg.MainNetParams)
	require.NoError(t, err)

	require.Greater(t, len(withType.Script), len(withoutType.Script))
}

func TestBuild_RecipientAddressDecodeFailureIsRejected(t *testing.T) {
	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	internalPubKey := schnorr.SerializePubKey(privKey.PubKey())

	_, err = envelope.Build(internalPubKey, "text/plain", []byte("x"), "not-a-real-address", &chaincfg.MainNetParams)
	require.Error(t, err)
}
