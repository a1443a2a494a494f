package sofs

import "testing"

func TestInodeMarshalSize(t *testing.T) {
	var ino Inode
	buf := ino.marshal()
	if len(buf) != InodeSize {
		t.Errorf("Inode.marshal() produced the wrong length -- expect %d but got %d", InodeSize, len(buf))
	}
}

func TestInodeMarshalRoundTrip(t *testing.T) {

	want := Inode{
		Mode:     makeMode(false, TypeDirectory, 0755),
		Links:    2,
		Owner:    1000,
		Group:    1000,
		Size:     BSLPC,
		CluCount: 1,
		vD1:      111,
		vD2:      222,
		I1:       NullCluster,
		I2:       NullCluster,
	}
	for i := range want.Direct {
		want.Direct[i] = uint32(i) + 1
	}

	buf := want.marshal()
	var got Inode
	got.unmarshal(buf)

	if got != want {
		t.Errorf("Inode round-trip mismatch -- expect %+v but got %+v", want, got)
	}

}

func TestInodeModeBits(t *testing.T) {

	cases := []struct {
		free bool
		typ  FileType
		perm uint16
	}{
		{false, TypeRegular, 0644},
		{false, TypeDirectory, 0755},
		{false, TypeSymlink, 0777},
		{true, 0, 0},
	}

	for _, c := range cases {
		m := makeMode(c.free, c.typ, c.perm)
		var ino Inode
		ino.Mode = m
		if ino.IsFree() != c.free {
			t.Errorf("IsFree() mismatch for mode %#x -- expect %v but got %v", m, c.free, ino.IsFree())
		}
		if !c.free && ino.Type() != c.typ {
			t.Errorf("Type() mismatch for mode %#x -- expect %d but got %d", m, c.typ, ino.Type())
		}
		if !c.free && ino.Perm() != c.perm {
			t.Errorf("Perm() mismatch for mode %#x -- expect %o but got %o", m, c.perm, ino.Perm())
		}
	}

}

func TestInodeFreeListThreading(t *testing.T) {
	ino := freedInode(Inode{}, 5, 9)
	if !ino.IsFree() {
		t.Errorf("freedInode() did not set the free bit")
	}
	if ino.PrevFree() != 5 {
		t.Errorf("PrevFree() -- expect %d but got %d", 5, ino.PrevFree())
	}
	if ino.NextFree() != 9 {
		t.Errorf("NextFree() -- expect %d but got %d", 9, ino.NextFree())
	}
}

func TestInodeTimestampsAliasFreeListFields(t *testing.T) {
	var ino Inode
	ino.SetATime(1000)
	ino.SetMTime(2000)
	if ino.ATime() != 1000 {
		t.Errorf("ATime() -- expect %d but got %d", 1000, ino.ATime())
	}
	if ino.MTime() != 2000 {
		t.Errorf("MTime() -- expect %d but got %d", 2000, ino.MTime())
	}
}

func TestAddLinkSaturates(t *testing.T) {
	ino := newInUseInode(TypeRegular, 0644, 0, 0)
	ino.Links = refCountSaturated - 1
	if err := ino.AddLink(); err != nil {
		t.Fatalf("AddLink() unexpected error below saturation: %v", err)
	}
	if ino.Links != refCountSaturated {
		t.Errorf("AddLink() -- expect Links %d but got %d", refCountSaturated, ino.Links)
	}
	if err := ino.AddLink(); err != ErrHardlinkLimit {
		t.Errorf("AddLink() at saturation -- expect ErrHardlinkLimit but got %v", err)
	}
	if ino.Links != refCountSaturated {
		t.Errorf("AddLink() at saturation must not change Links -- got %d", ino.Links)
	}
}

func TestRemoveLinkNeverDecrementsSaturatedCount(t *testing.T) {
	var ino Inode
	ino.Links = refCountSaturated
	ino.RemoveLink()
	if ino.Links != refCountSaturated {
		t.Errorf("RemoveLink() must leave a saturated count untouched -- got %d", ino.Links)
	}
}

func TestRemoveLinkFloorsAtZero(t *testing.T) {
	var ino Inode
	ino.Links = 0
	ino.RemoveLink()
	if ino.Links != 0 {
		t.Errorf("RemoveLink() on zero -- expect 0 but got %d", ino.Links)
	}
}
