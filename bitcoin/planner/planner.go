// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package planner assigns a request's inscriptions to chains, one chain per
// funding output, filled in request order.
package planner

import (
	"fmt"

	"chaininscribe/bitcoin"
)

// MaxTransactionsPerChain caps a chain at 1 commit + 24 reveals, matching
// standard mempool ancestor/descendant package policy.
const MaxTransactionsPerChain = 25

// maxInscriptionsPerChain is the per-chain inscription cap implied by MaxTransactionsPerChain.
const maxInscriptionsPerChain = MaxTransactionsPerChain - 1

// Chain is one funding output's assignment: the index of the funding output
// that seeds it, and the contiguous slice of inscription indexes it carries.
type Chain struct {
	FundingIndex int
	Inscriptions []int
}

// AssembleFunc builds and fee-estimates one chain from a funding index and the
// inscription indexes assigned to it. The planner calls it once per chain and
// never retries a failed call against a different funding output.
type AssembleFunc func(fundingIndex int, inscriptionIndexes []int) error

// Plan walks inscriptions and funding outputs in request order, packing up to
// maxInscriptionsPerChain inscriptions per funding output, and invokes
// assemble for each chain it lays out.
//
// Sequential fill (as opposed to best-fit bin packing) is deliberate: it
// yields deterministic txids for deterministic inputs, is simple to test,
// and keeps inscription order mapped onto a contiguous prefix of chains.
func Plan(totalInscriptions, fundingCount int, assemble AssembleFunc) ([]Chain, error) {
	var (
		chains            []Chain
		inscriptionCursor = 0
		fundingCursor     = 0
	)

	for inscriptionCursor < totalInscriptions {
		if fundingCursor >= fundingCount {
			needed := (totalInscriptions + maxInscriptionsPerChain - 1) / maxInscriptionsPerChain
			return nil, bitcoin.NewFundingShortage(
				fmt.Sprintf("UTXO count insufficient for %d inscriptions", totalInscriptions),
				int64(needed), int64(fundingCount),
			)
		}

		remaining := totalInscriptions - inscriptionCursor
		take := remaining
		if take > maxInscriptionsPerChain {
			take = maxInscriptionsPerChain
		}

		indexes := make([]int, take)
		for i := range indexes {
			indexes[i] = inscriptionCursor + i
		}

		if err := assemble(fundingCursor, indexes); err != nil {
			return nil, err
		}

		chains = append(chains, Chain{FundingIndex: fundingCursor, Inscriptions: indexes})

		inscriptionCursor += take
		fundingCursor++
	}

	return chains, nil
}
