// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package signer

import (
	"bytes"
	"crypto/rand"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"chaininscribe/bitcoin"
	"chaininscribe/bitcoin/envelope"
)

// Signer signs funding and reveal inputs of an already-assembled transaction
// in place, operating directly on *wire.MsgTx rather than a PSBT packet: the
// Chain Assembler mutates dozens of not-yet-broadcast transactions per
// request and has no need to export them as PSBTs.
type Signer struct {
	networkParams *chaincfg.Params
	auxRand       *[32]byte
}

// NewSigner is a constructor for Signer.
func NewSigner(networkParams *chaincfg.Params) *Signer {
	return &Signer{networkParams: networkParams}
}

// SetAuxRandSource pins the 32-byte auxiliary randomness mixed into every
// script-path Schnorr signature this Signer produces from then on, making
// reveal-input signing reproducible across runs. BIP340 folds the signed
// message into the nonce derivation alongside the auxiliary randomness, so a
// single reused seed does not cause nonce reuse across distinct signatures.
// Passing nil restores signing with fresh randomness per signature.
func (s *Signer) SetAuxRandSource(seed *[32]byte) {
	s.auxRand = seed
}

// DecodePrivateKey decodes a WIF-encoded private key, validating it against
// the Signer's configured network.
func (s *Signer) DecodePrivateKey(wif string) (*btcec.PrivateKey, error) {
	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return nil, err
	}
	if !decoded.IsForNet(s.networkParams) {
		return nil, bitcoin.NewSigningFailure("private key WIF does not match the configured network")
	}

	return decoded.PrivKey, nil
}

// SignFundingInput signs tx.TxIn[idx], a funding input, according to addrType.
// prevOut is the funding output being spent; prevOutFetcher must resolve every
// input of tx, since P2TR key-path signing commits to every input's pk_script
// and value.
func (s *Signer) SignFundingInput(
	tx *wire.MsgTx,
	idx int,
	addrType FundingAddressType,
	privKey *btcec.PrivateKey,
	prevOut *wire.TxOut,
	prevOutFetcher txscript.PrevOutputFetcher,
) error {
	switch addrType {
	case AddressTypeP2PKH:
		return s.signP2PKH(tx, idx, privKey, prevOut)
	case AddressTypeP2WPKH:
		return s.signP2WPKH(tx, idx, privKey, prevOut, prevOutFetcher)
	case AddressTypeP2SHP2WPKH:
		return s.signP2SHP2WPKH(tx, idx, privKey, prevOut, prevOutFetcher)
	case AddressTypeP2TR:
		return s.signP2TRKeyPath(tx, idx, privKey, prevOut, prevOutFetcher)
	default:
		return bitcoin.NewSigningFailure("unsupported funding address type: " + string(addrType))
	}
}

// signP2PKH signs a legacy pay-to-pubkey-hash funding input.
func (s *Signer) signP2PKH(tx *wire.MsgTx, idx int, privKey *btcec.PrivateKey, prevOut *wire.TxOut) error {
	sig, err := txscript.RawTxInSignature(tx, idx, prevOut.PkScript, txscript.SigHashAll, privKey)
	if err != nil {
		return err
	}

	scriptSig, err := txscript.NewScriptBuilder().
		AddData(sig).
		AddData(privKey.PubKey().SerializeCompressed()).
		Script()
	if err != nil {
		return err
	}

	tx.TxIn[idx].SignatureScript = scriptSig

	return nil
}

// signP2WPKH signs a native segwit v0 pay-to-witness-pubkey-hash funding input.
func (s *Signer) signP2WPKH(tx *wire.MsgTx, idx int, privKey *btcec.PrivateKey, prevOut *wire.TxOut, prevOutFetcher txscript.PrevOutputFetcher) error {
	witness, err := p2wpkhWitness(tx, idx, privKey, prevOut, prevOutFetcher)
	if err != nil {
		return err
	}

	tx.TxIn[idx].Witness = witness

	return nil
}

// signP2SHP2WPKH signs a P2SH-nested P2WPKH funding input: the same witness as
// P2WPKH, plus a script_sig that pushes the 0x0014<hash160> redeem script.
func (s *Signer) signP2SHP2WPKH(tx *wire.MsgTx, idx int, privKey *btcec.PrivateKey, prevOut *wire.TxOut, prevOutFetcher txscript.PrevOutputFetcher) error {
	witness, err := p2wpkhWitness(tx, idx, privKey, prevOut, prevOutFetcher)
	if err != nil {
		return err
	}

	pubKeyHash := btcutil.Hash160(privKey.PubKey().SerializeCompressed())
	redeemScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(pubKeyHash).
		Script()
	if err != nil {
		return err
	}

	scriptSig, err := txscript.NewScriptBuilder().AddData(redeemScript).Script()
	if err != nil {
		return err
	}

	tx.TxIn[idx].Witness = witness
	tx.TxIn[idx].SignatureScript = scriptSig

	return nil
}

// p2wpkhWitness builds the [sig||hashtype, pubkey] witness shared by P2WPKH and
// P2SH-P2WPKH, signing over the implicit P2PKH-form previous script BIP143 requires.
func p2wpkhWitness(tx *wire.MsgTx, idx int, privKey *btcec.PrivateKey, prevOut *wire.TxOut, prevOutFetcher txscript.PrevOutputFetcher) (wire.TxWitness, error) {
	pubKeyHash := btcutil.Hash160(privKey.PubKey().SerializeCompressed())
	subScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		return nil, err
	}

	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	return txscript.WitnessSignature(tx, sigHashes, idx, prevOut.Value, subScript, txscript.SigHashAll, privKey, true)
}

// signP2TRKeyPath signs a taproot key-path funding input.
func (s *Signer) signP2TRKeyPath(tx *wire.MsgTx, idx int, privKey *btcec.PrivateKey, prevOut *wire.TxOut, prevOutFetcher txscript.PrevOutputFetcher) error {
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	witness, err := txscript.TaprootWitnessSignature(
		tx, sigHashes, idx, prevOut.Value, prevOut.PkScript, txscript.SigHashDefault, privKey,
	)
	if err != nil {
		return err
	}

	tx.TxIn[idx].Witness = witness

	return nil
}

// SignRevealInput script-path-signs tx.TxIn[idx], revealing ctx's inscription.
// It asserts that prevOut's script bitwise-equals ctx.CommitPkScript before
// signing, catching a planner/signer desynchronization deterministically
// rather than producing a signature over the wrong leaf.
func (s *Signer) SignRevealInput(
	tx *wire.MsgTx,
	idx int,
	ctx *envelope.Context,
	privKey *btcec.PrivateKey,
	prevOut *wire.TxOut,
	prevOutFetcher txscript.PrevOutputFetcher,
) error {
	if !bytes.Equal(ctx.CommitPkScript, prevOut.PkScript) {
		return bitcoin.NewSigningFailure("reveal input's previous output script does not match its inscription context")
	}

	leaf := txscript.NewBaseTapLeaf(ctx.Script)
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	sigHash, err := txscript.CalcTapscriptSignaturehash(sigHashes, txscript.SigHashDefault, tx, idx, prevOutFetcher, leaf)
	if err != nil {
		return err
	}

	auxRand := s.auxRand
	if auxRand == nil {
		auxRand = new([32]byte)
		if _, err := rand.Read(auxRand[:]); err != nil {
			return err
		}
	}

	sig, err := schnorr.Sign(privKey, sigHash, schnorr.CustomNonce(*auxRand))
	if err != nil {
		return err
	}

	tx.TxIn[idx].Witness = wire.TxWitness{sig.Serialize(), ctx.Script, ctx.ControlBlock}

	return nil
}
