package pntfs

import "testing"

func TestBootRecordPackUnpack(t *testing.T) {
	br, err := newBootRecord("pntfs", "a test volume", 10000, 100, 50, 300, 1000, 1100)
	if err != nil {
		t.Fatalf("newBootRecord: %v", err)
	}
	raw, err := br.pack()
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(raw) != bootRecordSize {
		t.Fatalf("packed length %d, want %d", len(raw), bootRecordSize)
	}

	var got BootRecord
	if err := got.unpack(raw); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got.DiskSize != 10000 || got.ClusterSize != 100 || got.ClusterCount != 50 {
		t.Fatalf("geometry fields lost in round trip: %+v", got)
	}
	if got.MFTStartAddress != 300 || got.BitmapStartAddress != 1000 || got.DataStartAddress != 1100 {
		t.Fatalf("region offsets lost in round trip: %+v", got)
	}
}

func TestNewBootRecordRejectsOverlongFields(t *testing.T) {
	if _, err := newBootRecord("waytoolongsignature", "d", 1, 1, 1, 0, 0, 0); err == nil {
		t.Fatal("expected an error for an overlong signature")
	}
}

func TestComputeGeometryFitsWithinDiskSize(t *testing.T) {
	geo, err := computeGeometry(10000, 100)
	if err != nil {
		t.Fatalf("computeGeometry: %v", err)
	}
	if geo.clusterCount < 1 || geo.mftCount < 1 {
		t.Fatalf("unexpected geometry: %+v", geo)
	}
	total := geo.dataStart + int64(geo.clusterCount)*100
	if total > 10000 {
		t.Fatalf("geometry overruns disk: dataStart=%d clusterCount=%d total=%d", geo.dataStart, geo.clusterCount, total)
	}
}

func TestComputeGeometryRejectsTinyDisk(t *testing.T) {
	if _, err := computeGeometry(10, 100); err == nil {
		t.Fatal("expected an error for a disk too small to hold a boot record")
	}
}
