// Package harvest walks working-copy targets and collects the commit items that
// describe their pending changes.
package harvest

import (
	"context"
	"slices"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
)

// MissingPolicy decides what happens to a versioned file that disappeared from disk.
type MissingPolicy string

// All missing-file policies.
const (
	MissingError  MissingPolicy = "error"
	MissingDelete MissingPolicy = "delete"
	MissingSkip   MissingPolicy = "skip"
)

// Options controls a harvest.
type Options struct {
	Depth       schema.Depth
	Force       bool
	JustLocked  bool
	Changelists []string
	OnMissing   MissingPolicy
}

func (o Options) normalized() Options {
	if o.Depth == "" || o.Depth == schema.DepthUnknown {
		o.Depth = schema.DepthInfinity
	}
	if o.OnMissing == "" {
		o.OnMissing = MissingError
	}
	return o
}

// Harvester collects commit packets from working copies.
type Harvester struct {
	store contract.WorkingCopyStore
}

// New creates a Harvester over a working-copy store.
func New(store contract.WorkingCopyStore) *Harvester {
	return &Harvester{store: store}
}

// CollectPacket harvests paths into a single packet. The paths must belong to one
// working copy. A packet without modifications is released and Empty is returned.
func (h *Harvester) CollectPacket(ctx context.Context, paths []string, opts Options) (*Packet, error) {
	if len(paths) == 0 {
		return Empty, nil
	}
	opts = opts.normalized()
	if err := contract.CheckCancelled(ctx); err != nil {
		return nil, err
	}

	if err := h.checkSingleWorkingCopy(paths); err != nil {
		return nil, err
	}

	base, targets := contract.CondensePaths(paths, opts.Depth == schema.DepthInfinity)
	lockDepth := -1
	if len(targets) == 1 && targets[0] == "" {
		root, err := h.store.Root(base)
		if err != nil {
			return nil, err
		}
		lockDepth = opts.Depth.AdminDepth()
		if root != base {
			targets = []string{contract.PathTail(base)}
			base = contract.PathRemoveTail(base)
			if lockDepth >= 0 {
				lockDepth++
			}
		}
	}

	access, err := h.store.Open(ctx, base, true, lockDepth)
	if err != nil {
		if contract.IsCancelled(err) {
			return nil, err
		}
		return nil, contract.CommitFailed(err)
	}

	packet, err := h.collect(ctx, access, targets, opts)
	if err != nil {
		_ = access.Close()
		if contract.IsCancelled(err) {
			return nil, err
		}
		return nil, contract.CommitFailed(err)
	}
	if packet.IsEmpty() {
		if err := access.Close(); err != nil {
			return nil, err
		}
		return Empty, nil
	}
	return packet, nil
}

// CollectPackets harvests paths into one packet per working-copy root. Packets
// without modifications are dropped. When combine is set, packets of the same
// repository and endpoint are merged.
func (h *Harvester) CollectPackets(ctx context.Context, paths []string, opts Options, combine bool) ([]*Packet, error) {
	var roots []string
	byRoot := map[string][]string{}
	for _, p := range paths {
		if err := contract.CheckCancelled(ctx); err != nil {
			return nil, err
		}
		root, err := h.store.Root(p)
		if err != nil {
			return nil, err
		}
		if _, ok := byRoot[root]; !ok {
			roots = append(roots, root)
		}
		byRoot[root] = append(byRoot[root], p)
	}

	var packets []*Packet
	for _, root := range roots {
		packet, err := h.CollectPacket(ctx, byRoot[root], opts)
		if err != nil {
			_ = DisposeAll(packets)
			return nil, err
		}
		if packet.IsEmpty() {
			continue
		}
		packets = append(packets, packet)
	}
	if !combine {
		return packets, nil
	}
	combined, err := Combine(packets)
	if err != nil {
		_ = DisposeAll(packets)
		return nil, err
	}
	return combined, nil
}

func (h *Harvester) collect(ctx context.Context, access contract.WCAccess, targets []string, opts Options) (*Packet, error) {
	if err := checkSingleRepository(access, targets); err != nil {
		return nil, err
	}
	if opts.Depth != schema.DepthInfinity && !opts.Force {
		for _, target := range targets {
			entry, err := access.Entry(target)
			if err != nil {
				continue
			}
			if entry.Kind == schema.DirKind && entry.IsScheduledForDeletion() {
				return nil, contract.NewError(contract.UnsupportedError, contract.CodeUnsupportedFeature,
					"Cannot non-recursively commit a directory deletion")
			}
		}
	}

	w := newWalker(access, opts)
	if err := w.harvestTargets(ctx, targets); err != nil {
		return nil, err
	}

	packet := &Packet{
		Access:     access,
		Items:      w.items(),
		LockTokens: w.lockTokens,
	}
	if anchor, err := access.Entry(""); err == nil {
		packet.UUID = anchor.RepositoryUUID
		packet.URL = anchor.URL
	}
	for _, item := range packet.Items {
		if packet.URL == "" {
			packet.URL = item.URL
		}
	}
	return packet, nil
}

// checkSingleWorkingCopy rejects paths that live in different working copies
// before any of them is locked.
func (h *Harvester) checkSingleWorkingCopy(paths []string) error {
	if len(paths) < 2 {
		return nil
	}
	first, err := h.store.Root(paths[0])
	if err != nil {
		return contract.CommitFailed(err)
	}
	for _, p := range paths[1:] {
		root, err := h.store.Root(p)
		if err != nil {
			return contract.CommitFailed(err)
		}
		if root != first {
			return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget,
				"Commit can only commit to a single repository at a time.\nAre all targets part of the same working copy? ('%s', '%s')",
				paths[0], p)
		}
	}
	return nil
}

// checkSingleRepository rejects targets whose entries point at different repositories.
func checkSingleRepository(access contract.WCAccess, targets []string) error {
	var uuids []string
	for _, target := range targets {
		entry, err := access.Entry(target)
		if err != nil || entry.RepositoryUUID == "" {
			continue
		}
		if !slices.Contains(uuids, entry.RepositoryUUID) {
			uuids = append(uuids, entry.RepositoryUUID)
		}
	}
	if len(uuids) > 1 {
		return contract.NewError(contract.ValidationError, contract.CodeIllegalTarget,
			"Commit can only commit to a single repository at a time.\nAre all targets part of the same working copy?")
	}
	return nil
}
