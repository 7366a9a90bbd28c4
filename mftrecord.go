package pntfs

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"
)

// MFTFragment is a contiguous run of data clusters belonging to one
// object. ClusterCount == 0 marks the slot unused.
type MFTFragment struct {
	ClusterStart int32
	ClusterCount int32
}

// Empty reports whether this fragment slot is unused.
func (f MFTFragment) Empty() bool { return f.ClusterCount == 0 }

// MFTRecord is the fixed-size metadata entry describing one file or
// directory, or one chain link of a file whose fragment list exceeds
// mftMaxFragments. See spec.md §3.
type MFTRecord struct {
	UID         uint32
	IsDirectory uint8
	Order       uint8
	OrderTotal  uint8
	_pad        uint8
	Name        [maxNameLen + 1]byte
	Size        int32
	Fragments   [mftMaxFragments]MFTFragment
}

var mftRecordSize = binary.Size(MFTRecord{})

// Free reports whether this MFT slot is unallocated (uid == 0, per I1).
func (r *MFTRecord) Free() bool { return r.UID == 0 }

func (r *MFTRecord) Dir() bool { return r.IsDirectory != 0 }

func (r *MFTRecord) NameString() string {
	return nameFromBytes(r.Name[:])
}

func (r *MFTRecord) setName(name string) {
	clear(r.Name[:])
	copy(r.Name[:], name)
}

func (r *MFTRecord) pack() ([]byte, error) {
	return restruct.Pack(defaultEncoding, r)
}

func (r *MFTRecord) unpack(raw []byte) error {
	return restruct.Unpack(raw, defaultEncoding, r)
}

// mftTable is a thin view over the MFT array region of the volume's
// backing buffer. It performs the linear scans spec.md §4.2 mandates:
// no secondary index, writes dominated by extent I/O elsewhere.
type mftTable struct {
	region []byte // buf[mftStart:bitmapStart]
	count  int
}

func (t *mftTable) slotOffset(i int) int { return i * mftRecordSize }

func (t *mftTable) get(i int) (MFTRecord, error) {
	var rec MFTRecord
	off := t.slotOffset(i)
	if err := rec.unpack(t.region[off : off+mftRecordSize]); err != nil {
		return MFTRecord{}, err
	}
	return rec, nil
}

func (t *mftTable) set(i int, rec *MFTRecord) error {
	raw, err := rec.pack()
	if err != nil {
		return err
	}
	off := t.slotOffset(i)
	copy(t.region[off:off+mftRecordSize], raw)
	return nil
}

func (t *mftTable) freeSlot(i int) error {
	return t.set(i, &MFTRecord{})
}

const mftNotFound = -1

func (t *mftTable) findFreeSlot() int {
	for i := 0; i < t.count; i++ {
		rec, err := t.get(i)
		if err == nil && rec.Free() {
			return i
		}
	}
	return mftNotFound
}

func (t *mftTable) findByUID(uid uint32) int {
	if uid == 0 {
		return mftNotFound
	}
	for i := 0; i < t.count; i++ {
		rec, err := t.get(i)
		if err == nil && rec.UID == uid {
			return i
		}
	}
	return mftNotFound
}

func (t *mftTable) findBy(uid uint32, name string, isDir bool) int {
	for i := 0; i < t.count; i++ {
		rec, err := t.get(i)
		if err != nil || rec.Free() {
			continue
		}
		if rec.UID == uid && rec.Dir() == isDir && rec.NameString() == name {
			return i
		}
	}
	return mftNotFound
}

// neededMFTRecords is the original's neededMftItems: how many MFT
// records are needed to hold a chain of fragmentCount fragments at
// mftMaxFragments fragments per record.
func neededMFTRecords(fragmentCount int) int {
	if fragmentCount <= 0 {
		return 1
	}
	return (fragmentCount + mftMaxFragments - 1) / mftMaxFragments
}
