package sofs

import "testing"

func TestAllocFreeInodeRoundTrip(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	before, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}

	n, err := fs.AllocInode()
	if err != nil {
		t.Fatalf("AllocInode() unexpected error: %v", err)
	}
	if n == RootInode {
		t.Fatalf("AllocInode() returned the root inode number")
	}

	mid, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}
	if mid.FreeInodes != before.FreeInodes-1 {
		t.Errorf("FreeInodes after one AllocInode() -- expect %d but got %d", before.FreeInodes-1, mid.FreeInodes)
	}

	ino := newInUseInode(TypeRegular, 0644, 0, 0)
	if err := fs.putInode(n, ino); err != nil {
		t.Fatalf("putInode() unexpected error: %v", err)
	}
	ino.Links = 0
	if err := fs.putInode(n, ino); err != nil {
		t.Fatalf("putInode() unexpected error: %v", err)
	}

	if err := fs.FreeInode(n); err != nil {
		t.Fatalf("FreeInode() unexpected error: %v", err)
	}

	after, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}
	if after.FreeInodes != before.FreeInodes {
		t.Errorf("FreeInodes after round trip -- expect %d but got %d", before.FreeInodes, after.FreeInodes)
	}

}

func TestAllocInodeExhaustion(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	stat, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}

	for i := uint32(0); i < stat.FreeInodes; i++ {
		if _, err := fs.AllocInode(); err != nil {
			t.Fatalf("AllocInode() #%d unexpected error: %v", i, err)
		}
	}

	if _, err := fs.AllocInode(); err != ErrNoInodes {
		t.Errorf("AllocInode() past exhaustion -- expect ErrNoInodes but got %v", err)
	}

}

func TestFreeInodeRejectsRoot(t *testing.T) {
	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)
	if err := fs.FreeInode(RootInode); err != ErrOperationNotPermitted {
		t.Errorf("FreeInode(root) -- expect ErrOperationNotPermitted but got %v", err)
	}
}

func TestFreeInodeRejectsStillLinked(t *testing.T) {
	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	n, err := fs.Mknod(RootInode, "linked", 0644, 0, 0)
	if err != nil {
		t.Fatalf("Mknod() unexpected error: %v", err)
	}
	if err := fs.FreeInode(n); err != ErrInvalidArgument {
		t.Errorf("FreeInode() on a still-linked inode -- expect ErrInvalidArgument but got %v", err)
	}
}

// TestAllocInodeCleansRecycledDirtyInode checks the lazy-clean recycle
// path directly: FreeInode leaves a freed inode's attached clusters in
// place, and it's the next AllocInode to draw that same slot that walks
// and releases them via CleanInode. Built by hand rather than through
// Unlink, which already truncates a file to empty before freeing its
// inode -- this exercises FreeInode/AllocInode against an inode that
// still has a cluster attached at free time.
func TestAllocInodeCleansRecycledDirtyInode(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	n, err := fs.AllocInode()
	if err != nil {
		t.Fatalf("AllocInode() unexpected error: %v", err)
	}

	// Drain every other free inode so n is the only one on the free list
	// once it's handed back below, guaranteeing AllocInode recycles it.
	for {
		_, err := fs.AllocInode()
		if err == ErrNoInodes {
			break
		}
		if err != nil {
			t.Fatalf("AllocInode() unexpected error: %v", err)
		}
	}

	ino := newInUseInode(TypeRegular, 0644, 0, 0)
	if err := fs.putInode(n, ino); err != nil {
		t.Fatalf("putInode() unexpected error: %v", err)
	}

	c, err := fs.AllocCluster(n, &ino, 0)
	if err != nil {
		t.Fatalf("AllocCluster() unexpected error: %v", err)
	}
	ino.CluCount = 1
	if err := fs.putInode(n, ino); err != nil {
		t.Fatalf("putInode() unexpected error: %v", err)
	}

	withCluster, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}

	if err := fs.FreeInode(n); err != nil {
		t.Fatalf("FreeInode() unexpected error: %v", err)
	}

	afterFree, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}
	if afterFree.FreeClusters != withCluster.FreeClusters {
		t.Errorf("FreeInode() must not itself release attached clusters -- FreeClusters changed from %d to %d", withCluster.FreeClusters, afterFree.FreeClusters)
	}

	dirty, err := fs.getInode(n)
	if err != nil {
		t.Fatalf("getInode() unexpected error: %v", err)
	}
	if dirty.Direct[0] != c {
		t.Errorf("FreeInode() must leave reference vectors intact -- expect Direct[0]=%d but got %d", c, dirty.Direct[0])
	}

	recycled, err := fs.AllocInode()
	if err != nil {
		t.Fatalf("AllocInode() unexpected error: %v", err)
	}
	if recycled != n {
		t.Fatalf("expected AllocInode() to recycle inode %d but got %d", n, recycled)
	}

	clean, err := fs.getInode(recycled)
	if err != nil {
		t.Fatalf("getInode() unexpected error: %v", err)
	}
	if clean.CluCount != 0 || clean.Direct[0] != NullCluster {
		t.Errorf("AllocInode() on a recycled dirty inode -- expect CleanInode to have cleared references, got CluCount=%d Direct[0]=%d", clean.CluCount, clean.Direct[0])
	}

	afterClean, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}
	if afterClean.FreeClusters != withCluster.FreeClusters+1 {
		t.Errorf("CleanInode() should have released the dirty inode's one cluster -- expect FreeClusters %d but got %d", withCluster.FreeClusters+1, afterClean.FreeClusters)
	}

}
