package harvest

import (
	"errors"
	"sync"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// Packet is the set of commit items harvested from one working copy (or from several
// working copies of the same repository once combined) together with the accesses
// holding them locked.
type Packet struct {
	Access     contract.WCAccess
	Items      []schema.CommitItem
	LockTokens map[string]string // URL to lock token

	// UUID and URL identify the repository and the anchor of the packet.
	UUID string
	URL  string

	extra      []contract.WCAccess
	disposed   sync.Once
	disposeErr error
}

// Empty is the packet returned when there is nothing to commit.
var Empty = &Packet{}

// IsEmpty reports whether the packet carries no commit items.
func (p *Packet) IsEmpty() bool {
	return p == nil || p == Empty || len(p.Items) == 0
}

// Accesses returns every working-copy access held by the packet.
func (p *Packet) Accesses() []contract.WCAccess {
	if p == nil || p.Access == nil {
		return nil
	}
	return append([]contract.WCAccess{p.Access}, p.extra...)
}

// AccessFor returns the access owning a local path together with the path relative
// to that access's anchor.
func (p *Packet) AccessFor(localPath string) (contract.WCAccess, string, bool) {
	var best contract.WCAccess
	for _, access := range p.Accesses() {
		anchor := access.Anchor()
		if !contract.IsAncestorPath(anchor, localPath) {
			continue
		}
		if best == nil || len(anchor) > len(best.Anchor()) {
			best = access
		}
	}
	if best == nil {
		return nil, "", false
	}
	return best, contract.RelativePath(best.Anchor(), localPath), true
}

// RemoveSkippedItems drops the items matched by skipped.
func (p *Packet) RemoveSkippedItems(skipped func(schema.CommitItem) bool) {
	if p.IsEmpty() || skipped == nil {
		return
	}
	kept := p.Items[:0]
	for _, item := range p.Items {
		if !skipped(item) {
			kept = append(kept, item)
		}
	}
	p.Items = kept
}

// Dispose releases every access of the packet. Only the first call does any work.
func (p *Packet) Dispose() error {
	if p == nil || p == Empty {
		return nil
	}
	p.disposed.Do(func() {
		var errs []error
		for _, access := range p.Accesses() {
			if err := access.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		p.disposeErr = errors.Join(errs...)
	})
	return p.disposeErr
}

// Combine merges packets that target the same repository through the same
// endpoint, keyed by UUID plus protocol, host, port and user info. Items are
// concatenated in packet order and lock tokens are unioned.
func Combine(packets []*Packet) ([]*Packet, error) {
	var order []string
	byKey := map[string]*Packet{}
	for _, p := range packets {
		if p.IsEmpty() {
			continue
		}
		if p.URL == "" {
			return nil, contract.NewError(contract.ValidationError, contract.CodeEntryMissingURL, "'%s' has no URL", p.Access.Anchor())
		}
		conn, err := contract.URLConnectionKey(p.URL)
		if err != nil {
			return nil, err
		}
		key := p.UUID + conn
		merged, ok := byKey[key]
		if !ok {
			merged = &Packet{
				Access:     p.Access,
				UUID:       p.UUID,
				URL:        p.URL,
				LockTokens: map[string]string{},
				extra:      append([]contract.WCAccess(nil), p.extra...),
			}
			byKey[key] = merged
			order = append(order, key)
		} else {
			merged.extra = append(merged.extra, p.Accesses()...)
			merged.URL = contract.CommonURLAncestor(merged.URL, p.URL)
		}
		merged.Items = append(merged.Items, p.Items...)
		for url, token := range p.LockTokens {
			merged.LockTokens[url] = token
		}
	}
	out := make([]*Packet, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, nil
}

// DisposeAll disposes every packet and joins the errors.
func DisposeAll(packets []*Packet) error {
	var errs []error
	for _, p := range packets {
		if err := p.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
