package pntfs

import (
	"log/slog"

	"github.com/dustin/go-humanize"
)

// CreateFile writes data as a new file named name inside parentSlot,
// allocating extents, MFT record(s), and registering the new UID in
// the parent, per spec.md §4.4. Large files whose extent list exceeds
// mftMaxFragments are striped across a chain of MFT records sharing
// the same uid, name, and size.
func (v *Volume) CreateFile(name string, parentSlot int, data []byte) (int, error) {
	const op = "CreateFile"
	if !v.isValidMFTSlot(parentSlot) {
		v.setIndexOutOfRange()
		return 0, newVolumeError(op, KindIndexOutOfRange, "")
	}
	if !validateName(name) {
		return 0, newVolumeError(op, KindNotFound, "invalid name")
	}
	if len(data) > v.freeSpaceBytes() {
		return 0, newVolumeError(op, KindNoSpace, "")
	}

	uid := v.nextUID()
	if err := v.saveUID(parentSlot, uid); err != nil {
		return 0, newVolumeError(op, KindNoSpace, err.Error())
	}

	plan, ok := v.planExtents(len(data))
	if !ok {
		// Registration in the parent already happened and is not
		// undone here: see DESIGN.md "Open Question decisions" #1 —
		// the source design does not roll back partial progress.
		return 0, newVolumeError(op, KindNoSpace, "")
	}

	needed := neededMFTRecords(len(plan))
	if needed > v.freeMFT {
		return 0, newVolumeError(op, KindNoMFT, "")
	}

	firstSlot, err := v.writeFileChain(uid, name, len(data), plan, data)
	if err != nil {
		return 0, err
	}

	v.log.Debug("file created", "name", name, "uid", uid, "size", humanize.Bytes(uint64(len(data))), "extents", len(plan))
	return firstSlot, nil
}

// writeFileChain lays out plan's extents across one or more MFT
// records (mftMaxFragments fragments per record) and commits the
// payload to the data clusters.
func (v *Volume) writeFileChain(uid uint32, name string, size int, plan []extentPlan, data []byte) (int, error) {
	orderTotal := neededMFTRecords(len(plan))
	var firstSlot = mftNotFound
	var rec MFTRecord
	var recSlot int
	order := 1
	offset := 0

	commitRecord := func() error {
		rec.UID = uid
		rec.IsDirectory = 0
		rec.Order = uint8(order)
		rec.OrderTotal = uint8(orderTotal)
		rec.Size = int32(size)
		rec.setName(name)
		if err := v.mft.set(recSlot, &rec); err != nil {
			return err
		}
		v.freeMFT--
		if firstSlot == mftNotFound {
			firstSlot = recSlot
		}
		order++
		rec = MFTRecord{}
		return nil
	}

	for i, ext := range plan {
		fragIdx := i % mftMaxFragments
		if fragIdx == 0 {
			slot := v.mft.findFreeSlot()
			if slot == mftNotFound {
				return 0, newVolumeError("CreateFile", KindNoMFT, "")
			}
			recSlot = slot
			rec = MFTRecord{}
		}

		segment := data[offset : offset+ext.byteLen]
		v.saveContinualSegment(segment, ext.clusterStart)
		offset += ext.byteLen

		rec.Fragments[fragIdx] = MFTFragment{
			ClusterStart: int32(ext.clusterStart),
			ClusterCount: int32(clustersFor(ext.byteLen, v.clusterSize)),
		}

		last := i == len(plan)-1
		full := fragIdx == mftMaxFragments-1
		if full || last {
			if err := commitRecord(); err != nil {
				return 0, err
			}
		}
	}
	if len(plan) == 0 {
		// Zero-byte file: still needs exactly one (empty) record.
		slot := v.mft.findFreeSlot()
		if slot == mftNotFound {
			return 0, newVolumeError("CreateFile", KindNoMFT, "")
		}
		recSlot = slot
		rec = MFTRecord{}
		if err := commitRecord(); err != nil {
			return 0, err
		}
	}
	return firstSlot, nil
}

// chainSlots returns the MFT slot indices of every record carrying
// uid, in ascending slot order.
func (v *Volume) chainSlots(uid uint32) []int {
	var slots []int
	for i := 0; i < v.mft.count; i++ {
		r, err := v.mft.get(i)
		if err != nil || r.Free() || r.UID != uid {
			continue
		}
		slots = append(slots, i)
	}
	return slots
}

// LoadFile reads and concatenates the clusters referenced by every
// fragment of a file's record chain, truncated to its logical size.
// Per spec.md §9 item 2, a fragment's bytes come from exactly
// [start, start+count) clusters, not [start, fragmentCount).
func (v *Volume) LoadFile(slot int) ([]byte, error) {
	const op = "LoadFile"
	rec, err := v.Record(slot)
	if err != nil {
		return nil, err
	}
	if rec.Dir() {
		return nil, newVolumeError(op, KindNotFound, "is a directory")
	}

	slots := v.chainSlots(rec.UID)
	buf := make([]byte, 0, rec.Size)
	for _, s := range slots {
		r, err := v.mft.get(s)
		if err != nil {
			return nil, err
		}
		for _, frag := range r.Fragments {
			if frag.Empty() {
				continue
			}
			for c := 0; c < int(frag.ClusterCount); c++ {
				buf = append(buf, v.clusterBytes(int(frag.ClusterStart)+c)...)
			}
		}
	}
	if int(rec.Size) < len(buf) {
		buf = buf[:rec.Size]
	}
	return buf, nil
}

// RemoveFile clears every cluster and bitmap bit referenced by the
// file's record chain, frees the chain's MFT slots, and removes its
// UID from the parent directory.
func (v *Volume) RemoveFile(slot, parentSlot int) error {
	const op = "RemoveFile"
	rec, err := v.Record(slot)
	if err != nil {
		return err
	}
	if rec.Dir() {
		return newVolumeError(op, KindNotFound, "is a directory")
	}
	uid := rec.UID
	zero := make([]byte, v.clusterSize)
	for _, s := range v.chainSlots(uid) {
		r, err := v.mft.get(s)
		if err != nil {
			return err
		}
		for _, frag := range r.Fragments {
			if frag.Empty() {
				continue
			}
			for c := 0; c < int(frag.ClusterCount); c++ {
				if idx := int(frag.ClusterStart) + c; idx >= 0 && idx < v.clusterCount {
					v.writeCluster(idx, zero)
				}
			}
			v.bitmap.setRange(int(frag.ClusterStart), int(frag.ClusterCount), false)
		}
		if err := v.mft.freeSlot(s); err != nil {
			return err
		}
		v.freeMFT++
	}
	if err := v.removeUIDFromDir(parentSlot, uid); err != nil {
		return err
	}
	v.log.Debug("file removed", slog.Any("uid", uid), slog.Int("slot", slot))
	return nil
}

// Copy reads the file at srcSlot and creates an independent copy (new
// UID, same name and bytes) inside dstDirSlot.
func (v *Volume) Copy(srcSlot, dstDirSlot int) (int, error) {
	rec, err := v.Record(srcSlot)
	if err != nil {
		return 0, err
	}
	if rec.Dir() {
		return 0, newVolumeError("Copy", KindNotFound, "is a directory")
	}
	data, err := v.LoadFile(srcSlot)
	if err != nil {
		return 0, err
	}
	return v.CreateFile(rec.NameString(), dstDirSlot, data)
}

// Move adds the file's UID to the destination directory and, only on
// success, removes it from the source; a full destination leaves the
// source untouched (spec.md §6 move).
func (v *Volume) Move(slot, fromDirSlot, toDirSlot int) error {
	const op = "Move"
	if !v.isValidMFTSlot(fromDirSlot) || !v.isValidMFTSlot(toDirSlot) {
		v.setIndexOutOfRange()
		return newVolumeError(op, KindIndexOutOfRange, "")
	}
	rec, err := v.Record(slot)
	if err != nil {
		return err
	}
	if err := v.saveUID(toDirSlot, rec.UID); err != nil {
		return err
	}
	if err := v.removeUIDFromDir(fromDirSlot, rec.UID); err != nil {
		return err
	}
	return nil
}
