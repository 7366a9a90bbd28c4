// Package pntfs implements a pseudo-NTFS volume: a single contiguous
// byte region laid out as a boot record, an MFT array, an allocation
// bitmap, and a data cluster area, exposing a small hierarchical
// filesystem API (create/read/delete file, mkdir/rmdir, copy, move,
// list) plus consistency checking and defragmentation.
//
// The package owns no host I/O, no argument parsing, and no
// interactive shell: those are external collaborators that drive this
// API (see the Example for the shape of that integration).
package pntfs

import (
	"log/slog"

	"github.com/dustin/go-humanize"
)

// Volume is a single pseudo-NTFS filesystem image held entirely in
// memory. All public methods assume external serialization by the
// caller (spec.md §5): there is no internal locking beyond the
// consistency checker's work-cursor mutex.
type Volume struct {
	buf []byte

	boot BootRecord
	mft  mftTable

	bitmap bitmap

	clusterSize  int
	clusterCount int
	dataStart    int64 // byte offset of cluster 0

	uidCounter uint32
	freeMFT    int

	indexOutOfRange bool

	log *slog.Logger
}

const rootSlot = 0

// New creates a fresh pseudo-NTFS volume of diskSize bytes with the
// given cluster size, writes the boot record, zeroes the MFT and
// bitmap, and creates the root directory at MFT slot 0 (spec.md §6
// Constructor).
func New(diskSize, clusterSize int, signature, descriptor string) (*Volume, error) {
	geo, err := computeGeometry(diskSize, clusterSize)
	if err != nil {
		return nil, err
	}

	br, err := newBootRecord(signature, descriptor, diskSize, clusterSize, geo.clusterCount, geo.mftStart, geo.bitmapStart, geo.dataStart)
	if err != nil {
		return nil, err
	}

	v := &Volume{
		buf:          make([]byte, diskSize),
		boot:         *br,
		clusterSize:  clusterSize,
		clusterCount: geo.clusterCount,
		dataStart:    geo.dataStart,
		uidCounter:   1,
		freeMFT:      geo.mftCount,
		log:          slog.Default(),
	}

	raw, err := v.boot.pack()
	if err != nil {
		return nil, err
	}
	copy(v.buf[:bootRecordSize], raw)

	v.mft = mftTable{region: v.buf[geo.mftStart:geo.bitmapStart], count: geo.mftCount}
	v.bitmap = bitmap{region: v.buf[geo.bitmapStart:geo.dataStart], count: geo.clusterCount, vol: v}

	root := MFTRecord{
		UID:         v.nextUID(),
		IsDirectory: 1,
		Order:       1,
		OrderTotal:  1,
	}
	root.setName("root")
	if err := v.mft.set(rootSlot, &root); err != nil {
		return nil, err
	}
	v.freeMFT--

	v.log.Debug("volume created",
		slog.Int("disk_size", diskSize),
		slog.Int("cluster_size", clusterSize),
		slog.Int("cluster_count", geo.clusterCount),
		slog.Int("mft_count", geo.mftCount),
		slog.String("free_space", humanize.Bytes(uint64(v.freeSpaceBytes()))),
	)
	return v, nil
}

// SetLogger installs a logger used for lifecycle events (mount,
// create, delete, defragment, check). A nil logger restores the
// package default via slog.Default().
func (v *Volume) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	v.log = l
}

func (v *Volume) nextUID() uint32 {
	uid := v.uidCounter
	v.uidCounter++
	return uid
}

// IndexOutOfRange reports the sticky out-of-range flag (spec.md §7).
func (v *Volume) IndexOutOfRange() bool { return v.indexOutOfRange }

// ClearIndexOutOfRange resets the sticky flag, typically called by a
// caller after inspecting it following a batch of operations.
func (v *Volume) ClearIndexOutOfRange() { v.indexOutOfRange = false }

func (v *Volume) setIndexOutOfRange() { v.indexOutOfRange = true }

// FreeSpace returns the number of free bytes in the data cluster area.
func (v *Volume) FreeSpace() int { return v.freeSpaceBytes() }

func (v *Volume) freeSpaceBytes() int {
	return v.bitmap.freeClusterCount() * v.clusterSize
}

// FreeMFTRecords returns the number of unallocated MFT slots.
func (v *Volume) FreeMFTRecords() int { return v.freeMFT }

func (v *Volume) clusterOffset(i int) int64 {
	return v.dataStart + int64(i)*int64(v.clusterSize)
}

// clusterBytes returns the live, aliased slice of cluster i's bytes in
// the backing buffer: writes through it mutate the volume directly.
// Used where a caller intends in-place edits (directory UID slots,
// the consistency checker's read-only scans).
func (v *Volume) clusterBytes(i int) []byte {
	off := v.clusterOffset(i)
	return v.buf[off : off+int64(v.clusterSize)]
}

func (v *Volume) writeCluster(i int, data []byte) {
	off := v.clusterOffset(i)
	copy(v.buf[off:off+int64(v.clusterSize)], data)
}

// Record returns a copy of the MFT record at slot (spec.md §6
// get_record). An out-of-range slot sets the sticky flag and returns
// the zero record.
func (v *Volume) Record(slot int) (MFTRecord, error) {
	if slot < 0 || slot >= v.mft.count {
		v.setIndexOutOfRange()
		return MFTRecord{}, newVolumeError("Record", KindIndexOutOfRange, "")
	}
	return v.mft.get(slot)
}

func (v *Volume) isValidMFTSlot(slot int) bool {
	return slot >= 0 && slot < v.mft.count
}
