package pntfs

import (
	"encoding/binary"
	"sort"

	"github.com/dustin/go-humanize"
)

// liveObject is one defragmentable unit: a file (possibly spread
// across a chain of MFT records) or a directory, identified by its
// UID. Fragments are flattened into the object's original left-to-
// right order (by each record's Order field) so permutation keeps a
// file's bytes in the right sequence even when its chain-link records
// don't sit at consecutive MFT slots.
type liveObject struct {
	primarySlot int // the order == 1 record's slot; survives defrag
	chainSlots  []int
	uid         uint32
	isDir       bool
	name        string
	size        int32
	fragments   []MFTFragment
	clusters    int // sum of fragment cluster counts == ceil(size/clusterSize)
}

// Defragment compacts the volume so every live object occupies exactly
// one contiguous extent at the head of the data area, per spec.md
// §4.8. It assumes consistent metadata on entry (I1-I4); run
// CheckConsistency first if that is not guaranteed.
//
// Directories are compacted first (their UID slots may have holes left
// by earlier removals; §4.8's "every live record has exactly one
// fragment (start, ceil(size/cluster_size))" only holds once gaps are
// squeezed out). Chained files collapse to a single record: after
// compaction every object occupies one contiguous extent, so no object
// needs more than mftMaxFragments fragments any more, and the
// chain-link records beyond order 1 are freed.
func (v *Volume) Defragment() error {
	before := v.freeSpaceBytes()

	if err := v.compactAllDirectories(); err != nil {
		return err
	}

	objects, err := v.collectLiveObjects()
	if err != nil {
		return err
	}

	indexTable := v.planDefragLayout(objects)
	v.permuteClusters(indexTable)
	if err := v.rewriteDefragMetadata(objects); err != nil {
		return err
	}

	v.log.Debug("defragment complete",
		"objects", len(objects),
		"free_before", humanize.Bytes(uint64(before)),
		"free_after", humanize.Bytes(uint64(v.freeSpaceBytes())),
	)
	return nil
}

// compactAllDirectories squeezes zeroed UID slots out of every live
// directory's cluster content and shrinks its fragment list to exactly
// ceil(size/cluster_size) clusters, freeing any now-excess clusters.
func (v *Volume) compactAllDirectories() error {
	for slot := 0; slot < v.mft.count; slot++ {
		rec, err := v.mft.get(slot)
		if err != nil || rec.Free() || !rec.Dir() {
			continue
		}
		if err := v.compactDirectory(slot, &rec); err != nil {
			return err
		}
	}
	return nil
}

func (v *Volume) compactDirectory(slot int, rec *MFTRecord) error {
	uids := v.directoryUIDs(rec)
	slotsPerCluster := v.clusterSize / uidSlotSize
	needed := clustersFor(int(rec.Size), v.clusterSize)

	// Free every currently allocated cluster; they'll be replaced by a
	// freshly written, tightly packed set below.
	for i, frag := range rec.Fragments {
		if frag.Empty() {
			continue
		}
		v.bitmap.setRange(int(frag.ClusterStart), int(frag.ClusterCount), false)
		rec.Fragments[i] = MFTFragment{}
	}

	for i := 0; i < needed; i++ {
		start, provided := v.findFreeSpace(v.clusterSize)
		if provided < v.clusterSize {
			return newVolumeError("Defragment", KindNoSpace, "compacting directory")
		}
		v.commitExtent(start, v.clusterSize)
		buf := make([]byte, v.clusterSize)
		for s := 0; s < slotsPerCluster; s++ {
			idx := i*slotsPerCluster + s
			if idx >= len(uids) {
				break
			}
			binary.LittleEndian.PutUint32(buf[s*uidSlotSize:], uids[idx])
		}
		v.writeCluster(start, buf)
		rec.Fragments[i] = MFTFragment{ClusterStart: int32(start), ClusterCount: 1}
	}
	return v.mft.set(slot, rec)
}

// collectLiveObjects walks the MFT once, grouping chain-link records
// by UID on first encounter, in MFT index order.
func (v *Volume) collectLiveObjects() ([]liveObject, error) {
	seen := make(map[uint32]bool)
	var objects []liveObject
	for slot := 0; slot < v.mft.count; slot++ {
		rec, err := v.mft.get(slot)
		if err != nil || rec.Free() || seen[rec.UID] {
			continue
		}
		seen[rec.UID] = true

		chain := v.chainSlots(rec.UID)
		sort.Slice(chain, func(i, j int) bool {
			ri, _ := v.mft.get(chain[i])
			rj, _ := v.mft.get(chain[j])
			return ri.Order < rj.Order
		})

		obj := liveObject{uid: rec.UID, isDir: rec.Dir(), name: rec.NameString(), size: rec.Size}
		for _, cs := range chain {
			r, err := v.mft.get(cs)
			if err != nil {
				return nil, err
			}
			if r.Order == 1 {
				obj.primarySlot = cs
			}
			obj.chainSlots = append(obj.chainSlots, cs)
			for _, frag := range r.Fragments {
				if frag.Empty() {
					continue
				}
				obj.fragments = append(obj.fragments, frag)
				obj.clusters += int(frag.ClusterCount)
			}
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// planDefragLayout builds the cluster-relocation index table (phase 1
// of spec.md §4.8): index_table[c] is the destination of cluster c, or
// -1 if c is not referenced by any live object.
func (v *Volume) planDefragLayout(objects []liveObject) []int {
	indexTable := make([]int, v.clusterCount)
	for i := range indexTable {
		indexTable[i] = -1
	}
	next := 0
	for _, obj := range objects {
		for _, frag := range obj.fragments {
			start, count := int(frag.ClusterStart), int(frag.ClusterCount)
			for i := 0; i < count; i++ {
				indexTable[start+i] = next + i
			}
			next += count
		}
	}
	return indexTable
}

// permuteClusters applies the permutation described by indexTable by
// repeatedly swapping cluster c with its recorded destination and
// updating the table as it goes (spec.md §4.8 phase 2). After swapping
// c and d = indexTable[c], whatever now sits at d is already in its
// final place (indexTable[d] becomes d), and indexTable[c] takes on
// d's old value — either another live cluster's destination to chase
// next, or -1 if d was a free target with nothing further to move.
// This handles chains that run into previously-free clusters without
// needing a full cycle back to the start: a swap-based walk never
// depends on reading a destination's original content through a
// stale index, unlike a read-only walk over indexTable.
func (v *Volume) permuteClusters(indexTable []int) {
	scratch := make([]byte, v.clusterSize)

	for c := 0; c < v.clusterCount; c++ {
		for indexTable[c] != c && indexTable[c] != -1 {
			d := indexTable[c]
			copy(scratch, v.clusterBytes(c))
			v.writeCluster(c, v.clusterBytes(d))
			v.writeCluster(d, scratch)
			indexTable[c], indexTable[d] = indexTable[d], indexTable[c]
		}
	}
}

// rewriteDefragMetadata is phase 3 of spec.md §4.8: clear the bitmap,
// then assign each live object exactly one fragment at the next
// available cluster, advancing a cursor. Chain-link records beyond
// order 1 are freed, since a single contiguous extent never needs more
// than one fragment regardless of how many clusters it spans.
func (v *Volume) rewriteDefragMetadata(objects []liveObject) error {
	for i := 0; i < v.clusterCount; i++ {
		v.bitmap.set(i, false)
	}

	cursor := 0
	for _, obj := range objects {
		rec, err := v.mft.get(obj.primarySlot)
		if err != nil {
			return err
		}
		rec.Fragments = [mftMaxFragments]MFTFragment{}
		if obj.clusters > 0 {
			rec.Fragments[0] = MFTFragment{ClusterStart: int32(cursor), ClusterCount: int32(obj.clusters)}
			v.bitmap.setRange(cursor, obj.clusters, true)
		}
		rec.Order = 1
		rec.OrderTotal = 1
		if err := v.mft.set(obj.primarySlot, &rec); err != nil {
			return err
		}

		for _, cs := range obj.chainSlots {
			if cs == obj.primarySlot {
				continue
			}
			if err := v.mft.freeSlot(cs); err != nil {
				return err
			}
			v.freeMFT++
		}

		cursor += obj.clusters
	}
	return nil
}
