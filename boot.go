package pntfs

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"
)

// defaultEncoding is the byte order used for every packed on-disk
// structure. spec.md §6 mandates little-endian for a portable
// re-implementation; the teacher's own packed fields (tables.go) are
// read with explicit binary.LittleEndian calls throughout, so this is
// the same choice, just centralized.
var defaultEncoding = binary.LittleEndian

const (
	maxSignatureLen = 8
	maxVolumeDescLen = 250
	maxNameLen       = 11
	mftMaxFragments  = 32
)

// BootRecord is the fixed-size header at offset 0 of the volume,
// describing geometry and the byte offsets of the other three regions.
// Field sizes and order follow spec.md §3 exactly.
type BootRecord struct {
	Signature          [maxSignatureLen + 1]byte
	VolumeDescriptor   [maxVolumeDescLen + 1]byte
	DiskSize           int32
	ClusterSize        int32
	ClusterCount       int32
	MFTStartAddress    int64
	BitmapStartAddress int64
	DataStartAddress   int64
	MFTMaxFragments    int32
}

// bootRecordSize is computed once from the zero value; every field is a
// fixed-width primitive or byte array, so binary.Size is exact and this
// avoids hand counting offsets by hand (the failure mode the teacher's
// tables.go constants are prone to).
var bootRecordSize = binary.Size(BootRecord{})

func (b *BootRecord) pack() ([]byte, error) {
	return restruct.Pack(defaultEncoding, b)
}

func (b *BootRecord) unpack(raw []byte) error {
	return restruct.Unpack(raw, defaultEncoding, b)
}

func newBootRecord(signature, descriptor string, diskSize, clusterSize, clusterCount int, mftStart, bitmapStart, dataStart int64) (*BootRecord, error) {
	if len(signature) > maxSignatureLen || len(descriptor) > maxVolumeDescLen {
		return nil, errInvalidSignature
	}
	br := &BootRecord{
		DiskSize:           int32(diskSize),
		ClusterSize:        int32(clusterSize),
		ClusterCount:       int32(clusterCount),
		MFTStartAddress:    mftStart,
		BitmapStartAddress: bitmapStart,
		DataStartAddress:   dataStart,
		MFTMaxFragments:    mftMaxFragments,
	}
	copy(br.Signature[:], signature)
	copy(br.VolumeDescriptor[:], descriptor)
	return br, nil
}

// geometry computes the region layout for a volume of the given total
// size and cluster size, per spec.md §2:
//
//	mft_count     = floor(disk_size * 0.1 / sizeof(mft_record))
//	cluster_count = fit remaining space given 1/8 byte/cluster bitmap overhead
type geometry struct {
	mftCount     int
	clusterCount int
	mftStart     int64
	bitmapStart  int64
	dataStart    int64
}

func computeGeometry(diskSize, clusterSize int) (geometry, error) {
	if diskSize <= 0 || clusterSize <= 0 {
		return geometry{}, errInvalidGeometry
	}
	afterBoot := diskSize - bootRecordSize
	if afterBoot <= 0 {
		return geometry{}, errInvalidGeometry
	}

	mftBudget := float64(diskSize) * 0.1
	mftCount := int(mftBudget) / mftRecordSize
	if mftCount < 1 {
		mftCount = 1
	}
	mftBytes := mftCount * mftRecordSize

	remaining := afterBoot - mftBytes
	if remaining <= 0 {
		return geometry{}, errInvalidGeometry
	}

	// Each data cluster costs clusterSize bytes plus 1/8 byte of bitmap.
	clusterCount := int(float64(remaining) / (float64(clusterSize) + 0.125))
	if clusterCount < 1 {
		return geometry{}, errInvalidGeometry
	}
	bitmapBytes := bytesForBits(clusterCount)

	mftStart := int64(bootRecordSize)
	bitmapStart := mftStart + int64(mftBytes)
	dataStart := bitmapStart + int64(bitmapBytes)

	if dataStart+int64(clusterCount)*int64(clusterSize) > int64(diskSize) {
		// Rounding in the bitmap-overhead division can overshoot by a
		// cluster; shrink until it fits.
		for clusterCount > 0 && dataStart+int64(clusterCount)*int64(clusterSize) > int64(diskSize) {
			clusterCount--
			bitmapBytes = bytesForBits(clusterCount)
			dataStart = bitmapStart + int64(bitmapBytes)
		}
		if clusterCount < 1 {
			return geometry{}, errInvalidGeometry
		}
	}

	return geometry{
		mftCount:     mftCount,
		clusterCount: clusterCount,
		mftStart:     mftStart,
		bitmapStart:  bitmapStart,
		dataStart:    dataStart,
	}, nil
}

func bytesForBits(n int) int {
	return (n + 7) / 8
}
