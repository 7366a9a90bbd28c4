package pntfs

import "encoding/binary"

const uidSlotSize = 4 // each child UID is a 32-bit integer, per spec.md §3

// MakeDirectory allocates a UID and a single data cluster, writes an
// empty MFT record for it, and registers it in the parent directory.
// Per spec.md §4.5, the new record starts with size 0 and exactly one
// extent (start, 1).
func (v *Volume) MakeDirectory(parentSlot int, name string) (int, error) {
	const op = "MakeDirectory"
	if !v.isValidMFTSlot(parentSlot) {
		v.setIndexOutOfRange()
		return 0, newVolumeError(op, KindIndexOutOfRange, "")
	}
	if !validateName(name) {
		return 0, newVolumeError(op, KindNotFound, "invalid name")
	}

	start, provided := v.findFreeSpace(v.clusterSize)
	if provided < v.clusterSize {
		return 0, newVolumeError(op, KindNoSpace, "")
	}
	mftSlot := v.mft.findFreeSlot()
	if mftSlot == mftNotFound {
		return 0, newVolumeError(op, KindNoMFT, "")
	}

	count := v.commitExtent(start, v.clusterSize)
	v.writeCluster(start, make([]byte, v.clusterSize))

	rec := MFTRecord{
		UID:         v.nextUID(),
		IsDirectory: 1,
		Order:       1,
		OrderTotal:  1,
	}
	rec.setName(name)
	rec.Fragments[0] = MFTFragment{ClusterStart: int32(start), ClusterCount: int32(count)}
	if err := v.mft.set(mftSlot, &rec); err != nil {
		return 0, err
	}
	v.freeMFT--

	if err := v.saveUID(parentSlot, rec.UID); err != nil {
		// Undo the allocation: the directory itself was never linked
		// into the tree, so free it rather than leak it (unlike the
		// multi-extent file write documented as non-rolled-back in
		// DESIGN.md, a single-cluster directory is cheap to unwind and
		// the original design does not speak to this case).
		v.bitmap.setRange(start, count, false)
		v.mft.freeSlot(mftSlot)
		v.freeMFT++
		return 0, err
	}

	v.log.Debug("directory created", "name", name, "uid", rec.UID, "slot", mftSlot)
	return mftSlot, nil
}

// RemoveDirectory removes an empty directory (size == 0) from its
// parent and frees its MFT slot and cluster. Non-empty directories
// fail with KindNotEmpty; removal is never recursive (spec.md §4.5).
func (v *Volume) RemoveDirectory(slot, parentSlot int) error {
	const op = "RemoveDirectory"
	rec, err := v.Record(slot)
	if err != nil {
		return err
	}
	if rec.Size != 0 {
		return newVolumeError(op, KindNotEmpty, "")
	}
	uid := rec.UID
	for _, frag := range rec.Fragments {
		if frag.Empty() {
			continue
		}
		v.bitmap.setRange(int(frag.ClusterStart), int(frag.ClusterCount), false)
	}
	if err := v.mft.freeSlot(slot); err != nil {
		return err
	}
	v.freeMFT++
	if err := v.removeUIDFromDir(parentSlot, uid); err != nil {
		return err
	}
	v.log.Debug("directory removed", "uid", uid, "slot", slot)
	return nil
}

// saveUID walks a directory's fragments looking for a free (zero) UID
// slot. If a fragment has room, the UID is written there. If the
// current fragment slot in the record is itself empty, a fresh cluster
// is allocated for it first. On success, size grows by 4.
func (v *Volume) saveUID(dirSlot int, uid uint32) error {
	rec, err := v.mft.get(dirSlot)
	if err != nil {
		return err
	}
	for fi := range rec.Fragments {
		frag := rec.Fragments[fi]
		if frag.Empty() {
			start, provided := v.findFreeSpace(v.clusterSize)
			if provided < v.clusterSize {
				return newVolumeError("saveUID", KindNoSpace, "")
			}
			count := v.commitExtent(start, v.clusterSize)
			v.writeCluster(start, make([]byte, v.clusterSize))
			frag = MFTFragment{ClusterStart: int32(start), ClusterCount: int32(count)}
			rec.Fragments[fi] = frag
		}
		if v.writeUIDToFragment(frag, uid) {
			rec.Size += uidSlotSize
			return v.mft.set(dirSlot, &rec)
		}
	}
	return newVolumeError("saveUID", KindNoSpace, "directory full")
}

// writeUIDToFragment scans a fragment's clusters as a flat array of
// uint32 slots and writes uid into the first zero slot it finds.
func (v *Volume) writeUIDToFragment(frag MFTFragment, uid uint32) bool {
	slotsPerCluster := v.clusterSize / uidSlotSize
	for c := 0; c < int(frag.ClusterCount); c++ {
		data := v.clusterBytes(int(frag.ClusterStart) + c)
		for s := 0; s < slotsPerCluster; s++ {
			off := s * uidSlotSize
			if binary.LittleEndian.Uint32(data[off:off+uidSlotSize]) == 0 {
				binary.LittleEndian.PutUint32(data[off:off+uidSlotSize], uid)
				return true
			}
		}
	}
	return false
}

// removeUIDFromDir finds the first occurrence of uid across a
// directory's fragments and zeroes it. spec.md §4.5/§9 item 3: only
// the first match is removed, which is correct as long as I3 holds
// (no duplicate UIDs).
func (v *Volume) removeUIDFromDir(dirSlot int, uid uint32) error {
	rec, err := v.mft.get(dirSlot)
	if err != nil {
		return err
	}
	slotsPerCluster := v.clusterSize / uidSlotSize
	for fi := range rec.Fragments {
		frag := rec.Fragments[fi]
		if frag.Empty() {
			continue
		}
		for c := 0; c < int(frag.ClusterCount); c++ {
			data := v.clusterBytes(int(frag.ClusterStart) + c)
			for s := 0; s < slotsPerCluster; s++ {
				off := s * uidSlotSize
				if binary.LittleEndian.Uint32(data[off:off+uidSlotSize]) == uid {
					binary.LittleEndian.PutUint32(data[off:off+uidSlotSize], 0)
					rec.Size -= uidSlotSize
					return v.mft.set(dirSlot, &rec)
				}
			}
		}
	}
	return newVolumeError("removeUIDFromDir", KindNotFound, "")
}

// directoryUIDs collects every nonzero UID across a directory's
// fragments in encounter order.
func (v *Volume) directoryUIDs(rec *MFTRecord) []uint32 {
	var uids []uint32
	slotsPerCluster := v.clusterSize / uidSlotSize
	for _, frag := range rec.Fragments {
		if frag.Empty() {
			continue
		}
		for c := 0; c < int(frag.ClusterCount); c++ {
			data := v.clusterBytes(int(frag.ClusterStart) + c)
			for s := 0; s < slotsPerCluster; s++ {
				off := s * uidSlotSize
				if u := binary.LittleEndian.Uint32(data[off : off+uidSlotSize]); u != 0 {
					uids = append(uids, u)
				}
			}
		}
	}
	return uids
}

// ListDirectory returns the MFT records of every child of dirSlot, in
// encounter order (spec.md §4.5 list_directory).
func (v *Volume) ListDirectory(dirSlot int) ([]MFTRecord, error) {
	rec, err := v.Record(dirSlot)
	if err != nil {
		return nil, err
	}
	uids := v.directoryUIDs(&rec)
	records := make([]MFTRecord, 0, len(uids))
	for _, uid := range uids {
		slot := v.mft.findByUID(uid)
		if slot == mftNotFound {
			continue
		}
		child, err := v.mft.get(slot)
		if err != nil {
			continue
		}
		records = append(records, child)
	}
	return records, nil
}

// Contains scans dirSlot's children for one matching (name, isDirectory)
// and returns its MFT slot, or KindNotFound. spec.md §4.5 contains.
func (v *Volume) Contains(dirSlot int, name string, isDirectory bool) (int, error) {
	rec, err := v.Record(dirSlot)
	if err != nil {
		return 0, err
	}
	for _, uid := range v.directoryUIDs(&rec) {
		slot := v.mft.findByUID(uid)
		if slot == mftNotFound {
			continue
		}
		child, err := v.mft.get(slot)
		if err != nil {
			continue
		}
		if child.Dir() == isDirectory && child.NameString() == name {
			return slot, nil
		}
	}
	return 0, newVolumeError("Contains", KindNotFound, name)
}

// IsDirEmpty reports whether the directory at slot has no children.
func (v *Volume) IsDirEmpty(slot int) (bool, error) {
	rec, err := v.Record(slot)
	if err != nil {
		return false, err
	}
	return rec.Size == 0, nil
}
