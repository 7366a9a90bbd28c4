package pntfs

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"testing"
)

func attachLogger(v *Volume) *slog.Logger {
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	v.SetLogger(l)
	return l
}

func newTestVolume(t *testing.T, diskSize, clusterSize int) *Volume {
	t.Helper()
	v, err := New(diskSize, clusterSize, "pntfs", "test volume")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestNewGeometry(t *testing.T) {
	v := newTestVolume(t, 10000, 100)
	if v.clusterCount <= 0 {
		t.Fatalf("expected positive cluster count, got %d", v.clusterCount)
	}
	if v.mft.count < 2 {
		t.Fatalf("expected at least 2 mft slots, got %d", v.mft.count)
	}
	root, err := v.Record(rootSlot)
	if err != nil {
		t.Fatalf("Record(root): %v", err)
	}
	if root.NameString() != "root" || !root.Dir() {
		t.Fatalf("unexpected root record: %+v", root)
	}
	if root.UID == 0 {
		t.Fatalf("root must carry a nonzero uid")
	}
}

func TestInvalidGeometry(t *testing.T) {
	if _, err := New(0, 100, "x", "y"); err == nil {
		t.Fatal("expected error for zero disk size")
	}
	if _, err := New(1000, 0, "x", "y"); err == nil {
		t.Fatal("expected error for zero cluster size")
	}
}

// TestRoundTripScenario implements spec.md §8 scenario 1: mkdir /a,
// import a small file into it, read it back.
func TestRoundTripScenario(t *testing.T) {
	v := newTestVolume(t, 10000, 100)
	attachLogger(v)

	aSlot, err := v.MakeDirectory(rootSlot, "a")
	if err != nil {
		t.Fatalf("MakeDirectory: %v", err)
	}

	const content = "hello world"
	fileSlot, err := v.CreateFile("hello.txt", aSlot, []byte(content))
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	got, err := v.LoadFile(fileSlot)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if string(got) != content {
		t.Fatalf("content mismatch: got %q want %q", got, content)
	}

	children, err := v.ListDirectory(aSlot)
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	if len(children) != 1 || children[0].NameString() != "hello.txt" || children[0].Dir() {
		t.Fatalf("unexpected directory listing: %+v", children)
	}
}

// TestOutOfSpace implements spec.md §8 scenario 3.
func TestOutOfSpace(t *testing.T) {
	v := newTestVolume(t, 2000, 50)

	free := v.FreeSpace()
	huge := bytes.Repeat([]byte{'x'}, free+1)
	if _, err := v.CreateFile("big.txt", rootSlot, huge); err == nil {
		t.Fatal("expected NO_SPACE error")
	}
	if v.FreeSpace() != free {
		t.Fatalf("free space changed after failed create: before=%d after=%d", free, v.FreeSpace())
	}

	children, err := v.ListDirectory(rootSlot)
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	if len(children) != 0 {
		t.Fatalf("expected no children after failed create, got %d", len(children))
	}
}

// TestNonEmptyRmdir implements spec.md §8 scenario 4.
func TestNonEmptyRmdir(t *testing.T) {
	v := newTestVolume(t, 10000, 100)
	aSlot, err := v.MakeDirectory(rootSlot, "a")
	if err != nil {
		t.Fatalf("MakeDirectory: %v", err)
	}
	if _, err := v.CreateFile("f", aSlot, []byte("x")); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	err = v.RemoveDirectory(aSlot, rootSlot)
	var ve *VolumeError
	if err == nil {
		t.Fatal("expected NOT_EMPTY error")
	} else if !errors.As(err, &ve) || ve.Kind != KindNotEmpty {
		t.Fatalf("expected KindNotEmpty, got %v", err)
	}
}

// TestMoveScenario implements spec.md §8 scenario 5.
func TestMoveScenario(t *testing.T) {
	v := newTestVolume(t, 10000, 100)
	aSlot, err := v.MakeDirectory(rootSlot, "a")
	if err != nil {
		t.Fatalf("mkdir a: %v", err)
	}
	bSlot, err := v.MakeDirectory(rootSlot, "b")
	if err != nil {
		t.Fatalf("mkdir b: %v", err)
	}
	fSlot, err := v.CreateFile("f", aSlot, []byte("data"))
	if err != nil {
		t.Fatalf("create f: %v", err)
	}
	fileRec, err := v.Record(fSlot)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := v.Move(fSlot, aSlot, bSlot); err != nil {
		t.Fatalf("Move: %v", err)
	}

	aChildren, err := v.ListDirectory(aSlot)
	if err != nil || len(aChildren) != 0 {
		t.Fatalf("expected a empty, got %+v err=%v", aChildren, err)
	}
	bChildren, err := v.ListDirectory(bSlot)
	if err != nil || len(bChildren) != 1 || bChildren[0].NameString() != "f" {
		t.Fatalf("expected b to contain f, got %+v err=%v", bChildren, err)
	}
	if bChildren[0].UID != fileRec.UID {
		t.Fatalf("uid changed across move: before=%d after=%d", fileRec.UID, bChildren[0].UID)
	}
}
