package profile

import (
	"fmt"
	"strings"
	"sync"
)

type versionKey struct {
	invoice string
	lpo     string
	endUser string
}

// Versioner assigns versioned invoice numbers. Vendors reuse one invoice
// number across several LPO/end-user splits, and the ERP needs each split
// booked under a distinct number, so every unique invoice/LPO/end-user
// combination gets a stable "-1N" suffix: INV-9 becomes INV-9-11, a second
// split of the same invoice becomes INV-9-12. Counters live for one batch
// and are safe to share across that batch's workers.
type Versioner struct {
	mu       sync.Mutex
	assigned map[versionKey]string
	perInv   map[string]int
}

func NewVersioner() *Versioner {
	return &Versioner{
		assigned: make(map[versionKey]string),
		perInv:   make(map[string]int),
	}
}

// Version returns the versioned invoice number for the combination,
// assigning the next suffix on first sight and the same value thereafter.
func (v *Versioner) Version(invoice, lpo, endUser string) string {
	norm := func(s string) string { return strings.TrimSpace(s) }
	key := versionKey{invoice: norm(invoice), lpo: norm(lpo), endUser: norm(endUser)}
	v.mu.Lock()
	defer v.mu.Unlock()
	if got, ok := v.assigned[key]; ok {
		return got
	}
	v.perInv[key.invoice]++
	got := fmt.Sprintf("%s-1%d", key.invoice, v.perInv[key.invoice])
	v.assigned[key] = got
	return got
}
