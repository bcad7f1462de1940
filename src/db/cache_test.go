package db

import (
	"testing"

	"github.com/shopspring/decimal"

	"ledger-server/src/ledger"
)

func TestSummaryCache(t *testing.T) {
	c, err := NewSummaryCache(100)
	if err != nil {
		t.Fatalf("NewSummaryCache() error = %v", err)
	}
	defer c.Close()

	s := ledger.Summary{Count: 2, Balance: decimal.NewFromInt(5)}
	c.Set(1, ledger.Current, 3, s)
	c.Set(2, "Jan", 1, ledger.Summary{Count: 1})
	c.Wait()

	got, ok := c.Get(1, ledger.Current, 3)
	if !ok {
		t.Fatal("Get() missed a stored summary")
	}
	if got.Count != 2 || !got.Balance.Equal(s.Balance) {
		t.Errorf("Get() = %+v, want %+v", got, s)
	}
	if _, ok := c.Get(1, ledger.Current, 4); ok {
		t.Error("Get() returned a summary for a newer version")
	}

	c.ClearOwner(1)
	if _, ok := c.Get(1, ledger.Current, 3); ok {
		t.Error("ClearOwner() kept the owner's summary")
	}
	if _, ok := c.Get(2, "Jan", 1); !ok {
		t.Error("ClearOwner() dropped another owner's summary")
	}

	c.Clear()
	if _, ok := c.Get(2, "Jan", 1); ok {
		t.Error("Clear() kept a summary")
	}
}
