package catalog

import "storefront-sync/internal/supplier"

// ChangeSet classifies one supplier's remote catalog against what is stored.
type ChangeSet struct {
	New           []supplier.RemoteProduct
	Changed       []Product // local rows with remote fields applied
	UnchangedSKUs []string
	Stale         []Product // stored but absent remotely; marked inactive, never deleted
}

// Diff matches by external SKU. Remote duplicates by SKU are collapsed to
// the first occurrence.
func Diff(local []Product, remote []supplier.RemoteProduct) ChangeSet {
	var cs ChangeSet

	byLocal := make(map[string]Product, len(local))
	for _, p := range local {
		byLocal[p.SKU] = p
	}

	seen := make(map[string]bool, len(remote))
	for _, rp := range remote {
		if rp.SKU == "" || seen[rp.SKU] {
			continue
		}
		seen[rp.SKU] = true

		p, ok := byLocal[rp.SKU]
		if !ok {
			cs.New = append(cs.New, rp)
			continue
		}
		if p.PriceCents != rp.PriceCents || p.Stock != rp.Stock || p.Name != rp.Name || !p.Active {
			p.PriceCents = rp.PriceCents
			p.Stock = rp.Stock
			p.Name = rp.Name
			p.Active = true
			cs.Changed = append(cs.Changed, p)
			continue
		}
		cs.UnchangedSKUs = append(cs.UnchangedSKUs, rp.SKU)
	}

	for _, p := range local {
		if !seen[p.SKU] && p.Active {
			cs.Stale = append(cs.Stale, p)
		}
	}
	return cs
}
