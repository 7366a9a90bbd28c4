package pntfs

import "testing"

func TestMFTRecordPackUnpack(t *testing.T) {
	rec := MFTRecord{UID: 42, IsDirectory: 1, Order: 1, OrderTotal: 1, Size: 123}
	rec.setName("readme")
	rec.Fragments[0] = MFTFragment{ClusterStart: 5, ClusterCount: 2}

	raw, err := rec.pack()
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(raw) != mftRecordSize {
		t.Fatalf("packed length %d, want %d", len(raw), mftRecordSize)
	}

	var got MFTRecord
	if err := got.unpack(raw); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got.UID != 42 || !got.Dir() || got.NameString() != "readme" || got.Size != 123 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Fragments[0] != rec.Fragments[0] {
		t.Fatalf("fragment round trip mismatch: got %+v want %+v", got.Fragments[0], rec.Fragments[0])
	}
}

func TestMFTRecordFreeAndEmpty(t *testing.T) {
	var rec MFTRecord
	if !rec.Free() {
		t.Fatal("zero-value record should be free")
	}
	var frag MFTFragment
	if !frag.Empty() {
		t.Fatal("zero-value fragment should be empty")
	}
}

func TestNeededMFTRecords(t *testing.T) {
	cases := []struct{ fragments, want int }{
		{0, 1},
		{1, 1},
		{32, 1},
		{33, 2},
		{64, 2},
		{65, 3},
	}
	for _, c := range cases {
		if got := neededMFTRecords(c.fragments); got != c.want {
			t.Errorf("neededMFTRecords(%d) = %d, want %d", c.fragments, got, c.want)
		}
	}
}

func TestMFTTableFindFreeSlotAndByUID(t *testing.T) {
	region := make([]byte, mftRecordSize*4)
	table := mftTable{region: region, count: 4}

	if got := table.findFreeSlot(); got != 0 {
		t.Fatalf("expected slot 0 free on an empty table, got %d", got)
	}

	rec := MFTRecord{UID: 7, IsDirectory: 1}
	rec.setName("a")
	if err := table.set(1, &rec); err != nil {
		t.Fatalf("set: %v", err)
	}

	if got := table.findByUID(7); got != 1 {
		t.Fatalf("findByUID(7) = %d, want 1", got)
	}
	if got := table.findByUID(0); got != mftNotFound {
		t.Fatalf("findByUID(0) should never match, got %d", got)
	}

	if err := table.freeSlot(1); err != nil {
		t.Fatalf("freeSlot: %v", err)
	}
	if got := table.findByUID(7); got != mftNotFound {
		t.Fatalf("expected uid 7 gone after freeSlot, got %d", got)
	}
}
