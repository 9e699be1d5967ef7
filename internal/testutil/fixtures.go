package testutil

import (
	"time"

	"github.com/mcp-tool-shop-org/attestia/internal/recon"
)

// BaseTime is the pinned timestamp shared by fixtures across packages.
var BaseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Intent builds a completed intent with a declared amount.
func Intent(id, chainID, txHash, value, currency string, decimals int64) recon.ReconcilableIntent {
	return recon.ReconcilableIntent{
		ID:      id,
		Status:  "completed",
		Kind:    "transfer",
		ChainID: chainID,
		TxHash:  txHash,
		Amount:  &recon.Money{Value: value, Currency: currency, Decimals: decimals},
	}
}

// DebitEntry builds a debit ledger entry correlated to an intent.
func DebitEntry(id, intentID, txHash, value, currency string, decimals int64) recon.ReconcilableLedgerEntry {
	return recon.ReconcilableLedgerEntry{
		ID:        id,
		AccountID: "acct-" + id,
		Direction: recon.DirectionDebit,
		Money:     recon.Money{Value: value, Currency: currency, Decimals: decimals},
		IntentID:  intentID,
		TxHash:    txHash,
	}
}

// Event builds an observed chain event. amount is the raw integer magnitude
// in minor units.
func Event(chainID, txHash, amount string, decimals int64, symbol string) recon.ReconcilableChainEvent {
	return recon.ReconcilableChainEvent{
		ChainID:   chainID,
		TxHash:    txHash,
		From:      "0xfrom",
		To:        "0xto",
		Amount:    amount,
		Decimals:  decimals,
		Symbol:    symbol,
		Timestamp: BaseTime,
	}
}

// BridgedEvent builds a chain event carrying a bridge reference, used for
// cross-chain settlement fixtures.
func BridgedEvent(chainID, txHash, amount string, decimals int64, symbol, bridgeRef string) recon.ReconcilableChainEvent {
	ev := Event(chainID, txHash, amount, decimals, symbol)
	ev.BridgeRef = bridgeRef
	return ev
}

// MatchedTriple builds one intent, its ledger entry and its chain event,
// all describing the same transfer of value at the given precisions.
func MatchedTriple(n string) (recon.ReconcilableIntent, recon.ReconcilableLedgerEntry, recon.ReconcilableChainEvent) {
	intent := Intent("intent-"+n, "ethereum", "0x"+n, "100", "ETH", 2)
	entry := DebitEntry("entry-"+n, "intent-"+n, "0x"+n, "100", "ETH", 2)
	event := Event("ethereum", "0x"+n, "100000000000000000000", 18, "ETH")
	return intent, entry, event
}
