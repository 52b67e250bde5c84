// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package planner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chaininscribe/bitcoin"
	"chaininscribe/bitcoin/planner"
)

func TestPlan_ChainCountFormula(t *testing.T) {
	var assembled []planner.Chain

	chains, err := planner.Plan(30, 2, func(fundingIndex int, inscriptionIndexes []int) error {
		assembled = append(assembled, planner.Chain{FundingIndex: fundingIndex, Inscriptions: inscriptionIndexes})
		return nil
	})
	require.NoError(t, err)
	require.Len(t, chains, 2)
	require.Len(t, chains[0].Inscriptions, 24)
	require.Len(t, chains[1].Inscriptions, 6)
	require.Equal(t, 0, chains[0].FundingIndex)
	require.Equal(t, 1, chains[1].FundingIndex)
	require.Equal(t, 0, chains[0].Inscriptions[0])
	require.Equal(t, 24, chains[1].Inscriptions[0])
	require.Len(t, assembled, 2)
}

func TestPlan_ExactMultiple(t *testing.T) {
	chains, err := planner.Plan(24, 1, func(int, []int) error { return nil })
	require.NoError(t, err)
	require.Len(t, chains, 1)
	require.Len(t, chains[0].Inscriptions, 24)
}

func TestPlan_FundingShortage(t *testing.T) {
	_, err := planner.Plan(30, 1, func(int, []int) error { return nil })
	require.Error(t, err)

	var shortage *bitcoin.FundingShortage
	require.ErrorAs(t, err, &shortage)
	require.Contains(t, shortage.Error(), "UTXO count insufficient")
	require.Contains(t, shortage.Error(), "30")
}

func TestPlan_AssembleFailurePropagatesWithoutRetry(t *testing.T) {
	calls := 0

	_, err := planner.Plan(10, 3, func(fundingIndex int, inscriptionIndexes []int) error {
		calls++
		return bitcoin.NewFundingShortage("chain broken", 0, 0)
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestPlan_NoInscriptionsProducesNoChains(t *testing.T) {
	calls := 0

	chains, err := planner.Plan(0, 5, func(int, []int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Empty(t, chains)
	require.Equal(t, 0, calls)
}
